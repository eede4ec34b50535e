package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// imageComponents returns the number of colour components of an image
// colour space.
func (d *Document) imageComponents(cs Object) (int, error) {
	cs, err := d.ResolveObject(cs)
	if err != nil {
		return 0, err
	}
	switch v := cs.(type) {
	case Name:
		switch v {
		case "DeviceGray", "CalGray", "G":
			return 1, nil
		case "DeviceRGB", "CalRGB", "RGB":
			return 3, nil
		case "DeviceCMYK", "CMYK":
			return 4, nil
		}
	case Array:
		if len(v) < 2 {
			break
		}
		if family, _ := v[0].(Name); family == "ICCBased" {
			obj, err := d.ResolveObject(v[1])
			if err != nil {
				return 0, err
			}
			if stream, ok := obj.(Stream); ok {
				if n, ok := stream.Dictionary.GetInt("N"); ok {
					return int(n), nil
				}
			}
			return 3, nil
		}
		if family, _ := v[0].(Name); family == "CalRGB" {
			return 3, nil
		}
	}
	return 0, fmt.Errorf("unsupported image colour space %v", cs)
}

// decodeImage turns an image XObject into an image.Image. JPEG data is
// decoded directly; raw samples must be 8 bits per component.
func (d *Document) decodeImage(stream Stream) (image.Image, error) {
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	filters := stream.Filters()
	if len(filters) > 0 && filters[len(filters)-1] == "DCTDecode" {
		return jpeg.Decode(bytes.NewReader(data))
	}

	w, _ := stream.Dictionary.GetInt("Width")
	h, _ := stream.Dictionary.GetInt("Height")
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has no size")
	}
	if bpc, ok := stream.Dictionary.GetInt("BitsPerComponent"); ok && bpc != 8 {
		return nil, fmt.Errorf("unsupported %d bits per component", bpc)
	}
	n, err := d.imageComponents(stream.Dictionary.Get("ColorSpace"))
	if err != nil {
		return nil, err
	}
	width, height := int(w), int(h)
	if len(data) < width*height*n {
		return nil, fmt.Errorf("image data too short: %d bytes for %dx%dx%d", len(data), width, height, n)
	}

	switch n {
	case 1:
		img := image.NewGray(image.Rect(0, 0, width, height))
		copy(img.Pix, data)
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for i := 0; i < width*height; i++ {
			img.Pix[i*4] = data[i*3]
			img.Pix[i*4+1] = data[i*3+1]
			img.Pix[i*4+2] = data[i*3+2]
			img.Pix[i*4+3] = 255
		}
		return img, nil
	case 4:
		img := image.NewCMYK(image.Rect(0, 0, width, height))
		copy(img.Pix, data)
		return img, nil
	}
	return nil, fmt.Errorf("unsupported %d component image", n)
}

// cmykToRGB converts device CMYK to RGB the naive way.
func cmykToRGB(c, m, y, k float64) color.NRGBA {
	return color.NRGBA{
		R: channel((1 - c) * (1 - k)),
		G: channel((1 - m) * (1 - k)),
		B: channel((1 - y) * (1 - k)),
		A: 255,
	}
}
