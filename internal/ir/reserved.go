package ir

// Reserved identifiers. They are bound before any user symbol and keep the same
// id in every database.
const (
	FalseID = 80
	TrueID  = 81
	GetID   = 82
	QryID   = 88
	NamID   = 90
	KeyID   = 99
	AllID   = 901

	// FirstUserID is the floor for ids assigned to new symbols.
	FirstUserID = 999999
)

// Reserved lists the built-in symbol bindings in id order.
var Reserved = []Name{
	{ID: FalseID, Symbol: "f"},
	{ID: TrueID, Symbol: "t"},
	{ID: GetID, Symbol: "g"},
	{ID: QryID, Symbol: "qry"},
	{ID: NamID, Symbol: "nam"},
	{ID: KeyID, Symbol: "key"},
	{ID: AllID, Symbol: "all"},
}

// Keyword returns the value keyword for one of the t/f/g ids.
func Keyword(id int64) (string, bool) {
	switch id {
	case TrueID:
		return "t", true
	case FalseID:
		return "f", true
	case GetID:
		return "g", true
	}
	return "", false
}

// KeywordID returns the reserved id for a value keyword.
func KeywordID(word string) (int64, bool) {
	switch word {
	case "t":
		return TrueID, true
	case "f":
		return FalseID, true
	case "g":
		return GetID, true
	}
	return 0, false
}
