package apiquery

import (
	"reflect"
	"strings"
)

const queryStructTag = "query"

type parsedStructTag struct {
	name      string
	omitempty bool
	flattened bool
}

func parseQueryStructTag(field reflect.StructField) (parsedStructTag, bool) {
	tag := parsedStructTag{}

	raw, ok := field.Tag.Lookup(queryStructTag)
	if !ok {
		return tag, false
	}

	parts := strings.Split(raw, ",")
	if len(parts) == 0 {
		return tag, false
	}

	tag.name = parts[0]
	for _, part := range parts {
		switch part {
		case "omitempty":
			tag.omitempty = true
		case "flattened":
			tag.flattened = true
		}
	}

	return tag, true
}
