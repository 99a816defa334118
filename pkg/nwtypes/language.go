// Package nwtypes holds the small, range-checked primitive types shared by
// every codec and by ResMan: languages, genders, codepages, file magics,
// resource references and resource types.
package nwtypes

import "fmt"

// Language is the engine's closed set of supported UI/string languages.
type Language int

const (
	English Language = 0
	French  Language = 1
	German  Language = 2
	Italian Language = 3
	Spanish Language = 4
	Polish  Language = 5
)

var languageCodes = map[Language]string{
	English: "en",
	French:  "fr",
	German:  "de",
	Italian: "it",
	Spanish: "es",
	Polish:  "pl",
}

var codeToLanguage = func() map[string]Language {
	m := make(map[string]Language, len(languageCodes))
	for l, c := range languageCodes {
		m[c] = l
	}
	return m
}()

// Code returns the two-letter code for the language (e.g. "en").
func (l Language) Code() (string, error) {
	c, ok := languageCodes[l]
	if !ok {
		return "", fmt.Errorf("nwtypes: unknown language %d", int(l))
	}
	return c, nil
}

// LanguageFromCode resolves a two-letter locale code to a Language. Unknown
// codes fall back to English, matching the reference environment probe that
// never hard-fails locale detection.
func LanguageFromCode(code string) Language {
	if l, ok := codeToLanguage[code]; ok {
		return l
	}
	return English
}

// DefaultCodePage returns the codepage the engine uses by default for this
// language: CP1250 for Polish, CP1252 for everything else.
func (l Language) DefaultCodePage() CodePage {
	if l == Polish {
		return CP1250
	}
	return CP1252
}

func (l Language) Valid() bool {
	_, ok := languageCodes[l]
	return ok
}

// Gender is paired with Language to key localized string entries.
type Gender int

const (
	Male   Gender = 0
	Female Gender = 1
)

// GenderedLanguage is the (language, gender) pair used as exolocstring and
// ERF/TLK localized-string keys. The engine packs it as a single integer
// lang*2 + gender.
type GenderedLanguage struct {
	Lang   Language
	Gender Gender
}

// ID returns the combined engine id for this pair.
func (g GenderedLanguage) ID() uint32 {
	return uint32(g.Lang)*2 + uint32(g.Gender)
}

// GenderedLanguageFromID decodes the combined engine id back into a pair.
func GenderedLanguageFromID(id uint32) GenderedLanguage {
	return GenderedLanguage{
		Lang:   Language(id / 2),
		Gender: Gender(id % 2),
	}
}

func (g GenderedLanguage) String() string {
	lc, _ := g.Lang.Code()
	gs := "MALE"
	if g.Gender == Female {
		gs = "FEMALE"
	}
	return fmt.Sprintf("%s %s", lc, gs)
}
