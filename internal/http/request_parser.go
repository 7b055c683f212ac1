// Package http serves the query engine as a JSON API.
//
// This file turns query strings and JSON bodies into core.FilterSelection
// values. Syntax problems are reported as *ParamError (HTTP 400); range
// problems are left to the engine, which reports a *core.SelectionError
// (HTTP 422).
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"claimlens/internal/core"
)

// maxBodyBytes bounds POST /api/v1/query bodies.
const maxBodyBytes = 64 << 10

// ParamError reports a malformed request parameter.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("parameter %s: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("parameter %s (%q): %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

var (
	errNotInteger  = errors.New("must be an integer")
	errBadJSON     = errors.New("invalid JSON body")
	errContentType = errors.New("content type must be application/json")
)

// SelectionDefaults supplies the values used for absent parameters: the
// full month range and every payer.
type SelectionDefaults struct {
	Min    int
	Max    int
	Payers []string
}

// ParseSelectionQuery reads min, max and the payer set from a query string.
// Payers may be given as repeated "payer" values, as a comma-separated
// "payers" list, or both. When neither is present every payer is selected;
// "payers=" with no value selects none.
func ParseSelectionQuery(q url.Values, def SelectionDefaults) (core.FilterSelection, error) {
	sel := core.FilterSelection{MinOrdinal: def.Min, MaxOrdinal: def.Max}

	var err error
	if sel.MinOrdinal, err = intParam(q, "min", def.Min); err != nil {
		return core.FilterSelection{}, err
	}
	if sel.MaxOrdinal, err = intParam(q, "max", def.Max); err != nil {
		return core.FilterSelection{}, err
	}

	_, hasPayer := q["payer"]
	_, hasPayers := q["payers"]
	if !hasPayer && !hasPayers {
		sel.Payers = append([]string(nil), def.Payers...)
		return sel, nil
	}

	sel.Payers = []string{}
	seen := make(map[string]bool)
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p != "" && !seen[p] {
			seen[p] = true
			sel.Payers = append(sel.Payers, p)
		}
	}
	for _, p := range q["payer"] {
		add(p)
	}
	for _, list := range q["payers"] {
		for _, p := range strings.Split(list, ",") {
			add(p)
		}
	}
	return sel, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ParamError{Param: name, Value: raw, Err: errNotInteger}
	}
	return n, nil
}

// selectionBody is the POST /api/v1/query payload. Absent fields take the
// defaults; a present but empty payers array selects no payer.
type selectionBody struct {
	MinOrdinal *int      `json:"min_ordinal"`
	MaxOrdinal *int      `json:"max_ordinal"`
	Payers     *[]string `json:"payers"`
}

// ParseSelectionBody decodes a JSON selection from r.
func ParseSelectionBody(w http.ResponseWriter, r *http.Request, def SelectionDefaults) (core.FilterSelection, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return core.FilterSelection{}, &ParamError{Param: "Content-Type", Value: ct, Err: errContentType}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var body selectionBody
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return core.FilterSelection{}, &ParamError{Param: "body", Err: fmt.Errorf("%w: %w", errBadJSON, err)}
	}

	sel := core.FilterSelection{MinOrdinal: def.Min, MaxOrdinal: def.Max}
	if body.MinOrdinal != nil {
		sel.MinOrdinal = *body.MinOrdinal
	}
	if body.MaxOrdinal != nil {
		sel.MaxOrdinal = *body.MaxOrdinal
	}
	if body.Payers != nil {
		sel.Payers = *body.Payers
	} else {
		sel.Payers = append([]string(nil), def.Payers...)
	}
	return sel, nil
}
