package validation

import (
	"testing"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

func TestNewImageRefValidator(t *testing.T) {
	validator := NewImageRefValidator()
	if validator == nil {
		t.Fatal("Expected non-nil validator")
	}

	expectedSchemes := []string{"http", "https", "azblob", "s3"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Fatalf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	for i, scheme := range expectedSchemes {
		if validator.allowedSchemes[i] != scheme {
			t.Errorf("Expected scheme %s, got %s", scheme, validator.allowedSchemes[i])
		}
	}
}

func TestValidateImageRef_Valid(t *testing.T) {
	validator := NewImageRefValidator()

	validRefs := []string{
		"http://example.com/lunch.jpg",
		"https://cdn.example.com/meals/2024/dinner.png",
		"azblob://uploads/users/42/breakfast.jpg",
		"s3://meal-photos/plate.png",
	}

	for _, ref := range validRefs {
		parsed, err := validator.ValidateImageRef(ref)
		if err != nil {
			t.Errorf("Expected %s to pass validation, got error: %v", ref, err)
			continue
		}
		if parsed.Host == "" {
			t.Errorf("Expected parsed host for %s", ref)
		}
	}
}

func TestValidateImageRef_Invalid(t *testing.T) {
	validator := NewImageRefValidator()

	tests := []struct {
		name string
		ref  string
	}{
		{"empty", ""},
		{"whitespace", " \t\n"},
		{"ftp scheme", "ftp://example.com/lunch.jpg"},
		{"file scheme", "file:///etc/passwd"},
		{"missing host", "https:///lunch.jpg"},
		{"relative path", "lunch.jpg"},
		{"blob without object", "azblob://uploads"},
		{"bucket without key", "s3://meal-photos/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateImageRef(tt.ref)
			if err == nil {
				t.Fatalf("Expected %q to fail validation", tt.ref)
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateImageRef_HostRestrictions(t *testing.T) {
	validator := NewImageRefValidatorWithOptions([]string{"https"}, []string{"cdn.example.com"})

	if _, err := validator.ValidateImageRef("https://cdn.example.com/plate.jpg"); err != nil {
		t.Errorf("Expected allowed host to pass, got %v", err)
	}

	_, err := validator.ValidateImageRef("https://elsewhere.com/plate.jpg")
	if err == nil {
		t.Fatal("Expected disallowed host to fail")
	}
	if appErr, ok := apperrors.As(err); ok {
		if appErr.Message != "image reference host not allowed" {
			t.Errorf("Unexpected message: %s", appErr.Message)
		}
	}

	if _, err := validator.ValidateImageRef("http://cdn.example.com/plate.jpg"); err == nil {
		t.Error("Expected http to be rejected when only https is allowed")
	}
}
