package cdn

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/custodia-labs/replica/internal/core/domain"
	"github.com/custodia-labs/replica/internal/core/query"
)

// pageParams translates a PageRequest into query parameters.
// Locale segments are not part of remote paths; the locale parameter
// selects them.
func pageParams(req domain.PageRequest, defaultLimit int) (url.Values, error) {
	params := url.Values{}
	if req.ContentType != "" {
		params.Set("content_type", req.ContentType)
	}
	if req.Locale != "" {
		params.Set("locale", req.Locale)
	}
	if req.Include > 0 {
		params.Set("include", strconv.Itoa(req.Include))
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))

	if req.Token != "" {
		skip, err := strconv.Atoi(req.Token)
		if err != nil || skip < 0 {
			return nil, fmt.Errorf("%w: page token %q", domain.ErrInvalidInput, req.Token)
		}
		params.Set("skip", req.Token)
	}

	for _, c := range req.Conditions {
		key, value, err := conditionParam(c)
		if err != nil {
			return nil, err
		}
		params.Add(key, value)
	}
	return params, nil
}

// conditionParam renders one condition as key[op]=value.
func conditionParam(c domain.Condition) (string, string, error) {
	if len(c.Path) == 0 {
		return "", "", fmt.Errorf("%w: empty condition path", domain.ErrInvalidFilter)
	}
	key := strings.Join(c.Path, ".")
	if c.Op != domain.OpEq {
		key += "[" + string(c.Op) + "]"
	}

	switch c.Op {
	case domain.OpIn, domain.OpNin:
		list, ok := c.Expected.([]any)
		if !ok {
			list = []any{c.Expected}
		}
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = formatValue(v)
		}
		return key, strings.Join(parts, ","), nil
	case domain.OpExists:
		b, ok := c.Expected.(bool)
		if !ok {
			return "", "", fmt.Errorf("%w: exists on %s needs a boolean", domain.ErrInvalidFilter, key)
		}
		return key, strconv.FormatBool(b), nil
	default:
		if !c.Op.Valid() {
			return "", "", fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, c.Op)
		}
		return key, formatValue(c.Expected), nil
	}
}

func formatValue(v any) string {
	switch t := query.Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// syncToken extracts the sync_token parameter of a next page or next sync URL.
func syncToken(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	token := u.Query().Get("sync_token")
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
