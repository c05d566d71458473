package cache

import "strings"

// Key is the content-addressed identity of a generation request.
type Key struct {
	Operation      string
	InputHash1     string
	InputHash2     string
	Discriminators []string
}

// NewKey hashes both input texts. Display metadata (names, titles) must
// never be passed as a discriminator.
func NewKey(operation, text1, text2 string, discriminators ...string) Key {
	return Key{
		Operation:      operation,
		InputHash1:     Hash(text1),
		InputHash2:     Hash(text2),
		Discriminators: discriminators,
	}
}

func (k Key) String() string {
	parts := make([]string, 0, 3+len(k.Discriminators))
	parts = append(parts, k.Operation, k.InputHash1, k.InputHash2)
	parts = append(parts, k.Discriminators...)
	return strings.Join(parts, "_")
}
