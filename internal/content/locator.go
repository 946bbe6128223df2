package content

import "github.com/google/uuid"

// Locator implements sax.Locator. line/column are updated in place as
// the parse advances; a handler that needs to remember a position must
// copy the four scalar fields out (documented on sax.Locator).
type Locator struct {
	parseID         uuid.UUID
	publicID, sysID string
	line, column    int
}

func (l *Locator) PublicID() string   { return l.publicID }
func (l *Locator) SystemID() string   { return l.sysID }
func (l *Locator) Line() int          { return l.line }
func (l *Locator) Column() int        { return l.column }
func (l *Locator) ParseID() uuid.UUID { return l.parseID }
