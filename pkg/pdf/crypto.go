package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
)

var (
	// ErrPasswordRequired is returned when a protected document is opened
	// without a password and the empty user password does not unlock it.
	ErrPasswordRequired = errors.New("pdf: document is password protected")
	// ErrInvalidPassword is returned when the supplied password matches
	// neither the user nor the owner password.
	ErrInvalidPassword = errors.New("pdf: invalid password")
	// ErrUnsupportedEncryption is returned for security handlers other than
	// the standard one, or for unknown revisions.
	ErrUnsupportedEncryption = errors.New("pdf: unsupported encryption")
)

// EncryptionType represents the PDF encryption algorithm
type EncryptionType int

const (
	EncryptionNone EncryptionType = iota
	EncryptionRC4
	EncryptionAES128
	EncryptionAES256
)

// SecurityHandler implements the standard security handler (revisions 2-6).
type SecurityHandler struct {
	Type        EncryptionType
	Version     int // V
	Revision    int // R
	KeyLength   int // bytes
	Permissions int32
	OwnerKey    []byte // O
	UserKey     []byte // U
	OwnerEnc    []byte // OE
	UserEnc     []byte // UE
	EncryptMeta bool

	docID []byte
	key   []byte
}

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// newSecurityHandler reads the Encrypt dictionary of doc.
func newSecurityHandler(doc *Document, encrypt Dictionary) (*SecurityHandler, error) {
	if filter, _ := encrypt.GetName("Filter"); filter != "Standard" {
		return nil, fmt.Errorf("%w: filter %q", ErrUnsupportedEncryption, filter)
	}

	sh := &SecurityHandler{
		Version:     intOr(encrypt, "V", 0),
		Revision:    intOr(encrypt, "R", 0),
		KeyLength:   intOr(encrypt, "Length", 40) / 8,
		EncryptMeta: true,
	}
	if p, ok := encrypt.GetInt("P"); ok {
		sh.Permissions = int32(p)
	}
	sh.OwnerKey = stringBytes(encrypt.Get("O"))
	sh.UserKey = stringBytes(encrypt.Get("U"))
	sh.OwnerEnc = stringBytes(encrypt.Get("OE"))
	sh.UserEnc = stringBytes(encrypt.Get("UE"))
	if b, ok := encrypt.Get("EncryptMetadata").(Boolean); ok {
		sh.EncryptMeta = bool(b)
	}
	if ids, ok := doc.Trailer.GetArray("ID"); ok && len(ids) > 0 {
		sh.docID = stringBytes(ids[0])
	}

	switch sh.Version {
	case 1, 2, 3:
		sh.Type = EncryptionRC4
		if sh.Version == 1 {
			sh.KeyLength = 5
		}
	case 4:
		sh.Type = EncryptionRC4
		if cfm := cryptFilterMethod(encrypt); cfm == "AESV2" {
			sh.Type = EncryptionAES128
		}
		sh.KeyLength = 16
	case 5:
		sh.Type = EncryptionAES256
		sh.KeyLength = 32
	default:
		return nil, fmt.Errorf("%w: V=%d", ErrUnsupportedEncryption, sh.Version)
	}
	if sh.KeyLength < 5 || sh.KeyLength > 32 {
		sh.KeyLength = 5
	}
	if sh.Revision < 2 || sh.Revision > 6 {
		return nil, fmt.Errorf("%w: R=%d", ErrUnsupportedEncryption, sh.Revision)
	}
	return sh, nil
}

func cryptFilterMethod(encrypt Dictionary) Name {
	stmf, _ := encrypt.GetName("StmF")
	if stmf == "" || stmf == "Identity" {
		return ""
	}
	cf, _ := encrypt.GetDict("CF")
	filter, _ := cf.GetDict(string(stmf))
	cfm, _ := filter.GetName("CFM")
	return cfm
}

func stringBytes(obj Object) []byte {
	if s, ok := obj.(String); ok {
		return s.Value
	}
	return nil
}

// Authenticate tries password as the user password and then as the owner
// password. On success the file key is retained for decryption.
func (sh *SecurityHandler) Authenticate(password string) bool {
	if sh.Type == EncryptionAES256 {
		return sh.authenticateAES256(password)
	}
	if sh.authenticateUser([]byte(password)) {
		return true
	}
	return sh.authenticateOwner(password)
}

// authenticateUser implements algorithms 6 and 7 of ISO 32000-1 (7.6.3.4).
func (sh *SecurityHandler) authenticateUser(password []byte) bool {
	key := sh.computeFileKey(password)
	computed := sh.computeUserKey(key)

	n := 32
	if sh.Revision >= 3 {
		n = 16
	}
	if len(sh.UserKey) < n || len(computed) < n || !bytes.Equal(computed[:n], sh.UserKey[:n]) {
		return false
	}
	sh.key = key
	return true
}

// authenticateOwner recovers the user password from O and checks it.
func (sh *SecurityHandler) authenticateOwner(password string) bool {
	sum := md5.Sum(padPassword([]byte(password)))
	digest := sum[:]
	if sh.Revision >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(digest)
			digest = s[:]
		}
	}
	key := digest[:sh.KeyLength]

	userPwd := append([]byte(nil), sh.OwnerKey...)
	if sh.Revision >= 3 {
		for i := 19; i >= 0; i-- {
			rc4XOR(xorKey(key, byte(i)), userPwd)
		}
	} else {
		rc4XOR(key, userPwd)
	}
	return sh.authenticateUser(userPwd)
}

// computeFileKey implements algorithm 2.
func (sh *SecurityHandler) computeFileKey(password []byte) []byte {
	h := md5.New()
	h.Write(padPassword(password))
	h.Write(sh.OwnerKey)
	p := uint32(sh.Permissions)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(sh.docID)
	if sh.Revision >= 4 && !sh.EncryptMeta {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	digest := h.Sum(nil)

	if sh.Revision >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(digest[:sh.KeyLength])
			digest = s[:]
		}
	}
	return digest[:sh.KeyLength]
}

// computeUserKey implements algorithms 4 and 5.
func (sh *SecurityHandler) computeUserKey(key []byte) []byte {
	if sh.Revision == 2 {
		out := append([]byte(nil), passwordPadding...)
		rc4XOR(key, out)
		return out
	}

	h := md5.New()
	h.Write(passwordPadding)
	h.Write(sh.docID)
	out := h.Sum(nil)
	for i := 0; i <= 19; i++ {
		rc4XOR(xorKey(key, byte(i)), out)
	}
	return append(out, make([]byte, 16)...)
}

// authenticateAES256 implements the revision 5 and 6 checks (algorithms
// 2.A and 11/12 of ISO 32000-2).
func (sh *SecurityHandler) authenticateAES256(password string) bool {
	if len(sh.UserKey) < 48 || len(sh.OwnerKey) < 48 {
		return false
	}
	pwd := []byte(password)
	if len(pwd) > 127 {
		pwd = pwd[:127]
	}
	u := sh.UserKey[:48]

	// Owner password first, as the reference implementation does.
	if bytes.Equal(sh.hash2B(pwd, sh.OwnerKey[32:40], u), sh.OwnerKey[:32]) {
		return sh.unwrapFileKey(sh.hash2B(pwd, sh.OwnerKey[40:48], u), sh.OwnerEnc)
	}
	if bytes.Equal(sh.hash2B(pwd, sh.UserKey[32:40], nil), sh.UserKey[:32]) {
		return sh.unwrapFileKey(sh.hash2B(pwd, sh.UserKey[40:48], nil), sh.UserEnc)
	}
	return false
}

func (sh *SecurityHandler) unwrapFileKey(intermediate, wrapped []byte) bool {
	if len(wrapped) != 32 {
		return false
	}
	block, err := aes.NewCipher(intermediate)
	if err != nil {
		return false
	}
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(key, wrapped)
	sh.key = key
	return true
}

// hash2B computes the revision 6 password hash; revision 5 uses plain SHA-256.
func (sh *SecurityHandler) hash2B(pwd, salt, udata []byte) []byte {
	first := sha256.New()
	first.Write(pwd)
	first.Write(salt)
	first.Write(udata)
	k := first.Sum(nil)
	if sh.Revision < 6 {
		return k
	}

	for round := 0; ; round++ {
		seq := make([]byte, 0, len(pwd)+len(k)+len(udata))
		seq = append(append(append(seq, pwd...), k...), udata...)
		k1 := bytes.Repeat(seq, 64)

		block, err := aes.NewCipher(k[:16])
		if err != nil {
			return nil
		}
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		var h hash.Hash
		switch sum % 3 {
		case 0:
			h = sha256.New()
		case 1:
			h = sha512.New384()
		default:
			h = sha512.New()
		}
		h.Write(e)
		k = h.Sum(nil)

		if round >= 63 && int(e[len(e)-1]) <= round-31 {
			break
		}
	}
	return k[:32]
}

// objectKey derives the per-object key (algorithm 1).
func (sh *SecurityHandler) objectKey(objNum, genNum int) []byte {
	if sh.Type == EncryptionAES256 {
		return sh.key
	}
	h := md5.New()
	h.Write(sh.key)
	h.Write([]byte{byte(objNum), byte(objNum >> 8), byte(objNum >> 16)})
	h.Write([]byte{byte(genNum), byte(genNum >> 8)})
	if sh.Type == EncryptionAES128 {
		h.Write([]byte("sAlT"))
	}
	n := len(sh.key) + 5
	if n > 16 {
		n = 16
	}
	return h.Sum(nil)[:n]
}

// decryptBytes decrypts one string or stream body.
func (sh *SecurityHandler) decryptBytes(data []byte, objNum, genNum int) ([]byte, error) {
	key := sh.objectKey(objNum, genNum)
	if sh.Type == EncryptionRC4 {
		out := append([]byte(nil), data...)
		rc4XOR(key, out)
		return out, nil
	}
	return decryptAESCBC(data, key)
}

// decryptObject walks obj and decrypts every string and stream in place of a
// copy. Streams of type XRef are stored in clear.
func (sh *SecurityHandler) decryptObject(obj Object, objNum, genNum int) (Object, error) {
	switch v := obj.(type) {
	case String:
		plain, err := sh.decryptBytes(v.Value, objNum, genNum)
		if err != nil {
			return nil, err
		}
		return String{Value: plain, IsHex: v.IsHex}, nil
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			d, err := sh.decryptObject(item, objNum, genNum)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case Dictionary:
		out := make(Dictionary, len(v))
		for k, item := range v {
			d, err := sh.decryptObject(item, objNum, genNum)
			if err != nil {
				return nil, err
			}
			out[k] = d
		}
		return out, nil
	case Stream:
		dict, err := sh.decryptObject(v.Dictionary, objNum, genNum)
		if err != nil {
			return nil, err
		}
		if t, _ := v.Dictionary.GetName("Type"); t == "XRef" {
			return Stream{Dictionary: dict.(Dictionary), Data: v.Data}, nil
		}
		if t, _ := v.Dictionary.GetName("Type"); t == "Metadata" && !sh.EncryptMeta {
			return Stream{Dictionary: dict.(Dictionary), Data: v.Data}, nil
		}
		data, err := sh.decryptBytes(v.Data, objNum, genNum)
		if err != nil {
			return nil, err
		}
		return Stream{Dictionary: dict.(Dictionary), Data: data}, nil
	}
	return obj, nil
}

func decryptAESCBC(data, key []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("pdf: malformed AES ciphertext")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	pad := int(plain[len(plain)-1])
	if pad > 0 && pad <= aes.BlockSize && pad <= len(plain) {
		plain = plain[:len(plain)-pad]
	}
	return plain, nil
}

func rc4XOR(key, data []byte) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return
	}
	c.XORKeyStream(data, data)
}

func xorKey(key []byte, x byte) []byte {
	out := make([]byte, len(key))
	for i := range key {
		out[i] = key[i] ^ x
	}
	return out
}

// padPassword pads a password to 32 bytes
func padPassword(password []byte) []byte {
	if len(password) > 32 {
		password = password[:32]
	}
	out := make([]byte, 32)
	n := copy(out, password)
	copy(out[n:], passwordPadding)
	return out
}

// CanModify returns true if modification is allowed
func (sh *SecurityHandler) CanModify() bool {
	return sh.Permissions&0x08 != 0
}

// CanAnnotate returns true if annotation is allowed
func (sh *SecurityHandler) CanAnnotate() bool {
	return sh.Permissions&0x20 != 0
}
