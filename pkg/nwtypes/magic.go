package nwtypes

import "fmt"

// FileMagic is the four-byte ASCII tag that opens most engine file formats:
// upper-case letters, digits, and spaces only, right-padded to four bytes.
type FileMagic [4]byte

// NewFileMagic validates and builds a FileMagic from a string of at most
// four characters, right-padding with spaces as needed.
func NewFileMagic(s string) (FileMagic, error) {
	var m FileMagic
	if len(s) > 4 {
		return m, fmt.Errorf("nwtypes: magic %q longer than 4 bytes", s)
	}
	padded := s
	for len(padded) < 4 {
		padded += " "
	}
	for i := 0; i < 4; i++ {
		c := padded[i]
		if !isMagicByte(c) {
			return m, fmt.Errorf("nwtypes: magic %q contains invalid byte %q", s, c)
		}
		m[i] = c
	}
	return m, nil
}

func isMagicByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == ' ':
		return true
	}
	return false
}

func (m FileMagic) String() string {
	return string(m[:])
}
