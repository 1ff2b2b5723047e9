package dispatch

import (
	"encoding/json"
	"fmt"
	"ms-groups/internal/models"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type param struct {
	key   string
	value string
}

// EncodeForm builds the urlencoded body for one group request. Nested values
// use bracketed keys (group[id]=1&group[nsid]=...), the way browser form
// serializers flatten objects, so the receiving view sees the same fields it
// would from a page script.
func EncodeForm(mode models.DispatchMode, g models.Group, pc models.PageContext) string {
	params := groupParams("group", g)
	if mode == models.ModeSharedURL {
		params = append(params, param{"userid", string(pc.UserID)})
	}
	params = append(params, param{"csrfmiddlewaretoken", pc.CSRFToken})

	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.value))
	}
	return sb.String()
}

func groupParams(prefix string, g models.Group) []param {
	var params []param
	if g.ID != "" {
		params = append(params, param{prefix + "[id]", string(g.ID)})
	}
	if g.NSID != "" {
		params = append(params, param{prefix + "[nsid]", g.NSID})
	}
	if g.Name != "" {
		params = append(params, param{prefix + "[name]", g.Name})
	}
	for _, k := range sortedKeys(g.Extra) {
		params = appendParams(params, prefix+"["+k+"]", g.Extra[k])
	}
	return params
}

func appendParams(params []param, prefix string, v any) []param {
	switch x := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(x) {
			params = appendParams(params, prefix+"["+k+"]", x[k])
		}
	case []any:
		for i, e := range x {
			if isScalar(e) {
				params = appendParams(params, prefix+"[]", e)
			} else {
				params = appendParams(params, prefix+"["+strconv.Itoa(i)+"]", e)
			}
		}
	default:
		params = append(params, param{prefix, scalarString(x)})
	}
	return params
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case models.FlexString:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
