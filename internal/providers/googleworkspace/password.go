package googleworkspace

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	lowers  = "abcdefghijklmnopqrstuvwxyz"
	uppers  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!#$%&*+-=?@^_~"
)

// GeneratePassword returns a crypto/rand secret of length n with at least one
// character from each class.
func GeneratePassword(n int) (string, error) {
	classes := []string{lowers, uppers, digits, symbols}
	if n < len(classes) {
		return "", fmt.Errorf("password length %d is below %d", n, len(classes))
	}
	all := lowers + uppers + digits + symbols

	out := make([]byte, n)
	for i := range out {
		set := all
		if i < len(classes) {
			set = classes[i]
		}
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out[i] = c
	}

	// Fisher-Yates so the guaranteed classes are not always at the front.
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		k := int(j.Int64())
		out[i], out[k] = out[k], out[i]
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
