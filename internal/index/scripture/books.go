package scripture

// book pairs a canonical name with its accepted spellings and
// abbreviations. Table order and alias order are load-bearing:
// normalization takes the first alias that matches, so reordering
// changes which book an ambiguous abbreviation resolves to.
type book struct {
	name    string
	aliases []string
}

var books = []book{
	// Old Testament
	{"Genesis", []string{"genesis", "gen", "ge", "gn"}},
	{"Exodus", []string{"exodus", "exod", "exo", "ex"}},
	{"Leviticus", []string{"leviticus", "lev", "le", "lv"}},
	{"Numbers", []string{"numbers", "num", "nu", "nm", "nb"}},
	{"Deuteronomy", []string{"deuteronomy", "deut", "deu", "dt"}},
	{"Joshua", []string{"joshua", "josh", "jos", "jsh"}},
	{"Judges", []string{"judges", "judg", "jdg", "jg", "jgs"}},
	{"Ruth", []string{"ruth", "rut", "rt"}},
	{"1 Samuel", []string{"1 samuel", "1samuel", "1 sam", "1sam", "1 sa", "1sa", "i samuel", "i sam"}},
	{"2 Samuel", []string{"2 samuel", "2samuel", "2 sam", "2sam", "2 sa", "2sa", "ii samuel", "ii sam"}},
	{"1 Kings", []string{"1 kings", "1kings", "1 kgs", "1kgs", "1 ki", "1ki", "i kings", "i kgs"}},
	{"2 Kings", []string{"2 kings", "2kings", "2 kgs", "2kgs", "2 ki", "2ki", "ii kings", "ii kgs"}},
	{"1 Chronicles", []string{"1 chronicles", "1chronicles", "1 chron", "1chron", "1 chr", "1chr", "i chronicles"}},
	{"2 Chronicles", []string{"2 chronicles", "2chronicles", "2 chron", "2chron", "2 chr", "2chr", "ii chronicles"}},
	{"Ezra", []string{"ezra", "ezr", "ez"}},
	{"Nehemiah", []string{"nehemiah", "neh", "ne"}},
	{"Esther", []string{"esther", "esth", "est", "es"}},
	{"Job", []string{"job", "jb"}},
	{"Psalms", []string{"psalms", "psalm", "pss", "ps", "psa", "psm", "pslm"}},
	{"Proverbs", []string{"proverbs", "prov", "pro", "prv", "pr"}},
	{"Ecclesiastes", []string{"ecclesiastes", "eccl", "ecc", "ec", "qoh"}},
	{"Song of Solomon", []string{"song of solomon", "song", "canticles", "canticle of canticles", "sos", "so", "ca"}},
	{"Isaiah", []string{"isaiah", "isa", "is"}},
	{"Jeremiah", []string{"jeremiah", "jer", "je", "jr"}},
	{"Lamentations", []string{"lamentations", "lam", "la"}},
	{"Ezekiel", []string{"ezekiel", "ezek", "eze", "ezk"}},
	{"Daniel", []string{"daniel", "dan", "da", "dn"}},
	{"Hosea", []string{"hosea", "hos", "ho"}},
	{"Joel", []string{"joel", "joe", "jl"}},
	{"Amos", []string{"amos", "amo", "am"}},
	{"Obadiah", []string{"obadiah", "obad", "ob"}},
	{"Jonah", []string{"jonah", "jnh", "jon"}},
	{"Micah", []string{"micah", "mic", "mc"}},
	{"Nahum", []string{"nahum", "nah", "na"}},
	{"Habakkuk", []string{"habakkuk", "hab", "hb"}},
	{"Zephaniah", []string{"zephaniah", "zeph", "zep", "zp"}},
	{"Haggai", []string{"haggai", "hag", "hg"}},
	{"Zechariah", []string{"zechariah", "zech", "zec", "zc"}},
	{"Malachi", []string{"malachi", "mal", "ml"}},

	// New Testament
	{"Matthew", []string{"matthew", "matt", "mat", "mt"}},
	{"Mark", []string{"mark", "mar", "mrk", "mk"}},
	{"Luke", []string{"luke", "luk", "lk"}},
	{"John", []string{"john", "joh", "jhn", "jn"}},
	{"Acts", []string{"acts", "act", "ac"}},
	{"Romans", []string{"romans", "rom", "ro", "rm"}},
	{"1 Corinthians", []string{"1 corinthians", "1corinthians", "1 cor", "1cor", "1 co", "1co", "i corinthians", "i cor"}},
	{"2 Corinthians", []string{"2 corinthians", "2corinthians", "2 cor", "2cor", "2 co", "2co", "ii corinthians", "ii cor"}},
	{"Galatians", []string{"galatians", "gal", "ga"}},
	{"Ephesians", []string{"ephesians", "eph", "ep"}},
	{"Philippians", []string{"philippians", "phil", "php", "pp"}},
	{"Colossians", []string{"colossians", "col", "co"}},
	{"1 Thessalonians", []string{"1 thessalonians", "1thessalonians", "1 thess", "1thess", "1 th", "1th", "i thessalonians"}},
	{"2 Thessalonians", []string{"2 thessalonians", "2thessalonians", "2 thess", "2thess", "2 th", "2th", "ii thessalonians"}},
	{"1 Timothy", []string{"1 timothy", "1timothy", "1 tim", "1tim", "1 ti", "1ti", "i timothy", "i tim"}},
	{"2 Timothy", []string{"2 timothy", "2timothy", "2 tim", "2tim", "2 ti", "2ti", "ii timothy", "ii tim"}},
	{"Titus", []string{"titus", "tit", "ti"}},
	{"Philemon", []string{"philemon", "phlm", "phm", "pm"}},
	{"Hebrews", []string{"hebrews", "heb", "he"}},
	{"James", []string{"james", "jas", "jm"}},
	{"1 Peter", []string{"1 peter", "1peter", "1 pet", "1pet", "1 pe", "1pe", "i peter", "i pet"}},
	{"2 Peter", []string{"2 peter", "2peter", "2 pet", "2pet", "2 pe", "2pe", "ii peter", "ii pet"}},
	{"1 John", []string{"1 john", "1john", "1 joh", "1joh", "1 jn", "1jn", "i john", "i joh"}},
	{"2 John", []string{"2 john", "2john", "2 joh", "2joh", "2 jn", "2jn", "ii john", "ii joh"}},
	{"3 John", []string{"3 john", "3john", "3 joh", "3joh", "3 jn", "3jn", "iii john", "iii joh"}},
	{"Jude", []string{"jude", "jud", "jd"}},
	{"Revelation", []string{"revelation", "rev", "rv", "re"}},
}
