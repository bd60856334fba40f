package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("1234"))
	assert.Equal(t, "****4567", MaskSecret("3001234567"))
	assert.Equal(t, "ref_****7890", MaskSecret("ref_1234567890"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a****@example.com", MaskEmail(" ana@example.com "))
	assert.Equal(t, "****", MaskEmail("@x"))
}

func TestMaskJSON(t *testing.T) {
	out := MaskJSON(map[string]any{
		"phone": "3001234567",
		"count": 3,
		"nested": map[string]any{
			"email": "ana@example.com",
		},
	})
	assert.Equal(t, "****4567", out["phone"])
	assert.Equal(t, 3, out["count"])
	assert.Equal(t, "a****@example.com", out["nested"].(map[string]any)["email"])
	assert.Nil(t, MaskJSON(nil))
}

func TestMaskMetadataOnlyTouchesSensitiveKeys(t *testing.T) {
	out := MaskMetadata(map[string]any{
		" payment_reference ": "pse_99887766",
		"Email":               "ana@example.com",
		"payment_method":      "bank_transfer",
		"installment_number":  2,
		"  ":                  "dropped",
		"phone":               map[string]any{"mobile": "3001234567"},
	})
	assert.Equal(t, map[string]any{
		"payment_reference":  "pse_****7766",
		"Email":              "a****@example.com",
		"payment_method":     "bank_transfer",
		"installment_number": 2,
		"phone":              map[string]any{"mobile": "****4567"},
	}, out)

	assert.NotNil(t, MaskMetadata(nil))
	assert.True(t, IsSensitive("EMAIL"))
	assert.False(t, IsSensitive("late_fee"))
}
