package vcf

import (
	"strings"

	"github.com/pharmguard-server/internal/domain"
)

// Validator provides content-level checks for uploaded VCF files. Line-level
// problems stay with the parser; the validator only rejects inputs that
// cannot possibly yield records.
type Validator struct{}

// NewValidator creates a new VCF content validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateFilename checks that an uploaded file carries the expected
// extension.
func (v *Validator) ValidateFilename(name string) error {
	if name == "" {
		return domain.NewValidationError("filename", "Filename cannot be empty", name)
	}

	if !strings.HasSuffix(strings.ToLower(name), ".vcf") {
		return domain.NewValidationError("filename", "File must have a .vcf extension", name)
	}

	return nil
}

// ValidateContent checks that the content is non-empty and within the size
// limit. maxBytes <= 0 disables the size check.
func (v *Validator) ValidateContent(content string, maxBytes int64) error {
	if strings.TrimSpace(content) == "" {
		return domain.NewValidationError("vcf_content", "VCF content cannot be empty", "")
	}

	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return domain.NewValidationError("vcf_content", "VCF content exceeds the size limit", len(content))
	}

	return nil
}
