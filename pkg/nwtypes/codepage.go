package nwtypes

// CodePage identifies the legacy 8-bit encoding used by engine strings. The
// encode/decode implementation lives in the sibling codepage package, which
// maps these onto golang.org/x/text/encoding/charmap tables.
type CodePage int

const (
	CP1250 CodePage = 1250
	CP1251 CodePage = 1251
	CP1252 CodePage = 1252
)

func (c CodePage) Valid() bool {
	switch c {
	case CP1250, CP1251, CP1252:
		return true
	}
	return false
}

func (c CodePage) String() string {
	switch c {
	case CP1250:
		return "CP1250"
	case CP1251:
		return "CP1251"
	case CP1252:
		return "CP1252"
	default:
		return "CP?"
	}
}
