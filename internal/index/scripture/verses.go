package scripture

// VerseLookup resolves a normalized reference to verse text. The query
// engine uses it to enrich generation context.
type VerseLookup interface {
	VerseText(normalizedRef string) (string, bool)
}

// StaticVerses is a small built-in verse table covering common
// references. A real deployment would swap in a Bible API client.
type StaticVerses struct{}

var sampleVerses = map[string]string{
	"John 3:16":        "For God so loved the world that he gave his one and only Son, that whoever believes in him shall not perish but have eternal life.",
	"Romans 8:28":      "And we know that in all things God works for the good of those who love him, who have been called according to his purpose.",
	"Philippians 4:13": "I can do all this through him who gives me strength.",
	"Psalms 23:1":      "The Lord is my shepherd, I lack nothing.",
	"Matthew 28:19":    "Therefore go and make disciples of all nations, baptizing them in the name of the Father and of the Son and of the Holy Spirit.",
	"Romans 3:23":      "for all have sinned and fall short of the glory of God,",
	"Ephesians 2:8-9":  "For it is by grace you have been saved, through faith, and this is not from yourselves, it is the gift of God, not by works, so that no one can boast.",
}

func (StaticVerses) VerseText(normalizedRef string) (string, bool) {
	text, ok := sampleVerses[normalizedRef]
	return text, ok
}
