package access

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

const (
	// codeSpace is the size of the fixed-width numeric code space (000000-999999).
	codeSpace = 1000000
	// defaultMaxAttempts bounds collision retries. With well under a million
	// active codes the expected retry count is ~1; the bound exists so a
	// pathologically full code space surfaces an error instead of spinning.
	defaultMaxAttempts = 25
)

// Generator draws 6-digit zero-padded codes, unique among codes currently in
// Active status. Uniqueness is checked system-wide, not per estate; see
// DESIGN.md for the open question around narrowing that scope. Terminal codes
// may reuse a previously issued value.
type Generator struct {
	ACDB        databases.AccessCodeDatabase
	MaxAttempts int
}

// NewGenerator creates a code generator backed by the accessCodes collection.
func NewGenerator(acdb databases.AccessCodeDatabase) *Generator {
	return &Generator{ACDB: acdb, MaxAttempts: defaultMaxAttempts}
}

// Generate returns a fresh code, retrying on collision up to MaxAttempts
// before failing with a generator_exhausted error.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for i := 0; i < attempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
		if err != nil {
			return "", WrapError(err, CodeInternal, "failed to draw random code")
		}
		code := fmt.Sprintf("%06d", n.Int64())

		count, err := g.ACDB.CountDocuments(ctx, bson.M{
			"code":   code,
			"status": models.CodeStatusActive,
		})
		if err != nil {
			return "", WrapError(err, CodeInternal, "failed to check code uniqueness")
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", NewError(CodeGeneratorExhausted, fmt.Sprintf("no unused code found in %d attempts", attempts))
}
