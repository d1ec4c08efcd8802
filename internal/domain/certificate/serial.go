package certificate

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"time"

	"github.com/turtacn/AIComply/pkg/errors"
)

const (
	serialAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	serialSuffixLen = 8
)

var serialPattern = regexp.MustCompile(`^[A-Z]{2}-[0-9]{4}-[A-Z0-9]{8}$`)

// SerialGenerator draws certificate numbers of the form PP-YYYY-XXXXXXXX.
// Uniqueness is probabilistic (36^8 suffixes per prefix and year); the
// certificate store enforces it with a unique constraint.
type SerialGenerator struct {
	rand io.Reader
}

// NewSerialGenerator returns a generator reading from r, or crypto/rand when
// r is nil.
func NewSerialGenerator(r io.Reader) *SerialGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &SerialGenerator{rand: r}
}

// Next returns a new serial for t issued at at.
func (g *SerialGenerator) Next(t CertificateType, at time.Time) (string, error) {
	max := big.NewInt(int64(len(serialAlphabet)))
	suffix := make([]byte, serialSuffixLen)
	for i := range suffix {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to draw certificate serial")
		}
		suffix[i] = serialAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%04d-%s", t.Prefix(), at.UTC().Year(), suffix), nil
}

// ValidSerial reports whether s has the certificate number format.
func ValidSerial(s string) bool {
	return serialPattern.MatchString(s)
}
