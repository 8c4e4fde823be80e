package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateEpisode(t *testing.T) {
	valid := func() *Episode {
		return &Episode{
			UUID:          "2f6e1d7c-5a4b-4d3c-9e8f-0a1b2c3d4e5f",
			Name:          "standup",
			Namespace:     "team",
			Content:       "Alice prefers tea",
			Format:        FormatText,
			ReferenceTime: time.Now(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Episode) *Episode
		wantErr error
	}{
		{name: "valid episode", mutate: func(e *Episode) *Episode { return e }},
		{name: "nil episode", mutate: func(*Episode) *Episode { return nil }, wantErr: ErrInvalidEpisode},
		{name: "missing uuid", mutate: func(e *Episode) *Episode { e.UUID = ""; return e }, wantErr: ErrEmptyUUID},
		{name: "missing name", mutate: func(e *Episode) *Episode { e.Name = ""; return e }, wantErr: ErrEmptyName},
		{name: "missing namespace", mutate: func(e *Episode) *Episode { e.Namespace = ""; return e }, wantErr: ErrEmptyNamespace},
		{name: "empty content", mutate: func(e *Episode) *Episode { e.Content = ""; return e }, wantErr: ErrEmptyContent},
		{name: "bad format", mutate: func(e *Episode) *Episode { e.Format = 0; return e }, wantErr: ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEpisode(tt.mutate(valid()))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateEpisode() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateEpisode() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidEpisode) {
				t.Errorf("ValidateEpisode() error = %v, should wrap ErrInvalidEpisode", err)
			}
		})
	}
}

func TestValidateEntity(t *testing.T) {
	if err := ValidateEntity(&Entity{Name: "Alice", Namespace: "ns"}); err != nil {
		t.Errorf("ValidateEntity() unexpected error: %v", err)
	}
	if err := ValidateEntity(&Entity{Namespace: "ns"}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("ValidateEntity() error = %v, want ErrEmptyName", err)
	}
	if err := ValidateEntity(nil); !errors.Is(err, ErrInvalidEntity) {
		t.Errorf("ValidateEntity() error = %v, want ErrInvalidEntity", err)
	}
}

func TestValidateFact(t *testing.T) {
	ok := &Fact{Relation: "LIKES", SourceId: 1, TargetId: 2, Namespace: "ns"}
	if err := ValidateFact(ok); err != nil {
		t.Errorf("ValidateFact() unexpected error: %v", err)
	}
	if err := ValidateFact(&Fact{Relation: "LIKES", SourceId: 1, Namespace: "ns"}); !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("ValidateFact() error = %v, want ErrMissingEndpoint", err)
	}
	if err := ValidateFact(&Fact{SourceId: 1, TargetId: 2, Namespace: "ns"}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("ValidateFact() error = %v, want ErrEmptyName", err)
	}
}

func TestValidateNamespace(t *testing.T) {
	if err := ValidateNamespace("global"); err != nil {
		t.Errorf("ValidateNamespace() unexpected error: %v", err)
	}
	if err := ValidateNamespace(""); !errors.Is(err, ErrEmptyNamespace) {
		t.Errorf("ValidateNamespace() error = %v, want ErrEmptyNamespace", err)
	}
	if err := ValidateNamespace("a\x00b"); err == nil {
		t.Error("ValidateNamespace() accepted a NUL byte")
	}
}
