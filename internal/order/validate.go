package order

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Makepad-fr/tada/internal/model"
)

func cleanTitle(s string) (string, error) {
	s = norm.NFC.String(strings.TrimSpace(s))
	if s == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return s, nil
}

func validateDraft(d model.Draft) (model.Draft, error) {
	title, err := cleanTitle(d.Title)
	if err != nil {
		return d, err
	}
	d.Title = title
	d.Description = norm.NFC.String(d.Description)
	return d, nil
}

func validatePatch(p model.Patch) (model.Patch, error) {
	if p.Title != nil {
		title, err := cleanTitle(*p.Title)
		if err != nil {
			return p, err
		}
		p.Title = &title
	}
	if p.Description != nil {
		desc := norm.NFC.String(*p.Description)
		p.Description = &desc
	}
	return p, nil
}

func positionError(reason string) error {
	return &ValidationError{Field: "position", Reason: reason}
}
