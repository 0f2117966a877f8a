// Package route projects the address bar onto client state and back.
//
// The address bar is modelled by History. Adapter reads a Snapshot from the
// current location on every call and offers the navigation actions the
// pages use to write state back into the URL.
package route

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/papertrail/internal/model"
)

// Query parameter names of the URL surface.
const (
	ParamSearch = "search"
	ParamIDs    = "ids"
)

// RootPath is the landing path, redirected to the politician search.
const RootPath = "/"

// SearchPath returns the search page path of a kind.
func SearchPath(kind model.Kind) string {
	if kind == model.KindDonor {
		return "/donor"
	}
	return "/politician"
}

// EntityURL returns the detail path of an entity.
func EntityURL(kind model.Kind, id int64) string {
	return SearchPath(kind) + "/" + strconv.FormatInt(id, 10)
}

// BuildComparisonURL returns the comparison path for ids, comma-joined in
// order.
func BuildComparisonURL(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "/politician/compare?" + ParamIDs + "=" + strings.Join(parts, ",")
}

// BuildSearchURL returns the search path of kind, seeded with query unless
// query is blank.
func BuildSearchURL(kind model.Kind, query string) string {
	base := SearchPath(kind)
	if strings.TrimSpace(query) == "" {
		return base
	}
	return base + "?" + ParamSearch + "=" + EncodeComponent(query)
}

// EncodeComponent escapes s for use as a query value. Spaces become %20,
// matching what a browser writes into the address bar.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ParseComparisonIDs splits a comma-separated id list. Tokens are trimmed;
// empty and malformed tokens are dropped.
func ParseComparisonIDs(param string) []int64 {
	if strings.TrimSpace(param) == "" {
		return nil
	}
	var ids []int64
	for _, tok := range strings.Split(param, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
