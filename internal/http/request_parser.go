// This file holds helpers for reading query parameters, JSON bodies and
// uploaded media.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"spendwise/internal/ai"
	"spendwise/internal/core"
)

const (
	maxJSONBody  = 1 << 20
	maxMediaBody = 20 << 20
)

// userID reads the user from the "user" parameter, then X-User-ID.
func userID(r *http.Request) (string, error) {
	if u := strings.TrimSpace(r.FormValue("user")); u != "" {
		return u, nil
	}
	if u := strings.TrimSpace(r.Header.Get("X-User-ID")); u != "" {
		return u, nil
	}
	return "", core.ErrEmptyUser
}

// parsePeriod accepts the selectors of core.ParseReportingPeriod plus the
// shorthands "month" and "year" for the current ones. Empty means the
// current month.
func parsePeriod(raw string, today core.Date) (core.CalendarPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "month":
		return core.Month(today.Year(), today.Month()), nil
	case "year":
		return core.Year(today.Year()), nil
	}
	return core.ParseReportingPeriod(raw)
}

// parseCurrency returns "" for an absent parameter so services apply
// their default.
func parseCurrency(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !core.IsCurrencyCode(raw) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidCurrency, raw)
	}
	return strings.ToUpper(raw), nil
}

func parseKind(raw string) (core.RecordKind, error) {
	if strings.TrimSpace(raw) == "" {
		return core.KindSubscription, nil
	}
	return core.ParseKind(raw)
}

// decodeJSON reads a single JSON object into v. Unknown fields are
// rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return invalid("request body too large")
		}
		if errors.Is(err, core.ErrInvalidAmount) {
			return err
		}
		return invalid("invalid JSON body: " + err.Error())
	}
	if dec.More() {
		return invalid("invalid JSON body: trailing data")
	}
	return nil
}

// readMedia returns the uploaded file. Multipart requests carry it in
// field; any other request is taken as the raw file with its
// Content-Type.
func readMedia(w http.ResponseWriter, r *http.Request, field string) (ai.Media, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMediaBody)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMediaBody); err != nil {
			return ai.Media{}, invalid("invalid multipart body: " + err.Error())
		}
		file, header, err := r.FormFile(field)
		if err != nil {
			return ai.Media{}, invalid(fmt.Sprintf("missing %q file", field))
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return ai.Media{}, invalid("could not read upload")
		}
		return newMedia(header.Header.Get("Content-Type"), data)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return ai.Media{}, invalid("could not read body")
	}
	return newMedia(mediaType, data)
}

func newMedia(contentType string, data []byte) (ai.Media, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ai.Media{}, ai.ErrEmptyInput
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		mt, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	return ai.Media{MIMEType: mt, Data: data}, nil
}

// amountValue accepts a JSON number or a decimal string such as "12,50".
type amountValue float64

func (a *amountValue) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = amountValue(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidAmount, string(b))
	}
	*a = amountValue(f)
	return nil
}
