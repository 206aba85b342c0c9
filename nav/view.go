package nav

// Button is one inline keyboard button: a label and the encoded action it
// fires. The transport passes the payload back unmodified.
type Button struct {
	Label   string
	Payload string
}

// View is a renderable navigation state: text plus button rows. The
// transport decides how to draw it; rows are never empty.
type View struct {
	Text       string
	Markdown   bool
	ButtonRows [][]Button
}

// State is the only durable cross-request navigation state: the chapter the
// conversation is currently in. Everything else travels inside action
// payloads. The transport persists it per conversation.
type State struct {
	CurrentChapter int
	HasCurrent     bool
}

// WithChapter returns state moved to the given chapter.
func (s State) WithChapter(chapterIndex int) State {
	return State{CurrentChapter: chapterIndex, HasCurrent: true}
}

func btn(label string, t Token) Button {
	return Button{Label: label, Payload: t.Encode()}
}

// appendRow adds a row only when it has buttons - empty rows make malformed
// keyboards.
func appendRow(rows [][]Button, row []Button) [][]Button {
	if len(row) == 0 {
		return rows
	}
	return append(rows, row)
}
