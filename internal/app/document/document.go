// Package document renders the monthly export page: header, calendar grid
// and guest cards, as a single fixed-size HTML document.
package document

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"stayregister/internal/domain/calendar"
	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

// Page geometry: A4 at 96 CSS pixels per inch.
const (
	PageWidthPx  = 794
	PageHeightPx = 1123
	RootID       = "stay-document"
)

const caption = "Diagonal cells mark changeover days: the upper half belongs to the departing stay, " +
	"the lower half to the arriving one; a blank lower half is a check-out with no arrival. " +
	"Striped cells show stays overlapping on the same night."

type Intent string

const (
	IntentPrint Intent = "print"
	IntentPDF   Intent = "pdf"
)

// ParseIntent accepts "print" and "pdf"; empty defaults to print.
func ParseIntent(raw string) (Intent, error) {
	switch Intent(strings.ToLower(strings.TrimSpace(raw))) {
	case "", IntentPrint:
		return IntentPrint, nil
	case IntentPDF:
		return IntentPDF, nil
	}
	return "", &stays.ValidationError{Field: "intent", Reason: "must be print or pdf"}
}

// Input is the already filtered stay set for one month.
type Input struct {
	Year           int
	Month          time.Month
	ApartmentLabel string
	Stays          []*stays.Stay
}

type Document struct {
	Intent Intent
	Title  string
	HTML   []byte
	Width  int
	Height int
	RootID string
	Count  int
}

//go:embed templates/document.gohtml
var templatesFS embed.FS

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/document.gohtml")
	if err != nil {
		return nil, fmt.Errorf("document: parse template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustRenderer panics when the embedded template fails to parse.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(in Input, intent Intent) (Document, error) {
	if in.Month < time.January || in.Month > time.December {
		return Document{}, &stays.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if intent != IntentPrint && intent != IntentPDF {
		return Document{}, &stays.ValidationError{Field: "intent", Reason: "must be print or pdf"}
	}
	v := buildView(in, intent)
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "document.gohtml", v); err != nil {
		return Document{}, fmt.Errorf("document: execute: %w", err)
	}
	return Document{
		Intent: intent,
		Title:  v.Title,
		HTML:   buf.Bytes(),
		Width:  PageWidthPx,
		Height: PageHeightPx,
		RootID: RootID,
		Count:  v.Count,
	}, nil
}

type view struct {
	Title     string
	MonthName string
	Year      int
	Apartment string
	Count     int
	Width     int
	Height    int
	RootID    string
	Intent    Intent
	Print     bool
	Caption   string
	Weekdays  []string
	Cells     []cellView
	Cards     []cardView
}

type cellView struct {
	Date      string
	Day       int
	State     string
	Outside   bool
	Departing string
	Arriving  string
	Bands     string
	Style     template.CSS
}

type cardView struct {
	ID       int64
	Name     string
	Color    string
	ColorCSS template.CSS
	Fields   []field
}

type field struct {
	Label string
	Value string
}

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func buildView(in Input, intent Intent) view {
	paint := calendar.PaintMonth(in.Stays, in.Year, in.Month)
	apartment := strings.TrimSpace(in.ApartmentLabel)
	if apartment == "" {
		apartment = "All apartments"
	}
	v := view{
		Title:     fmt.Sprintf("%s %d - %s", in.Month, in.Year, apartment),
		MonthName: in.Month.String(),
		Year:      in.Year,
		Apartment: apartment,
		Width:     PageWidthPx,
		Height:    PageHeightPx,
		RootID:    RootID,
		Intent:    intent,
		Print:     intent == IntentPrint,
		Caption:   caption,
		Weekdays:  weekdays,
		Cells:     make([]cellView, 0, len(paint.Cells)),
	}
	for _, c := range paint.Cells {
		v.Cells = append(v.Cells, cellFor(c))
	}
	for _, s := range stays.Chronological(in.Stays) {
		if s == nil {
			continue
		}
		color, _ := paint.Colors.Color(s.ID)
		v.Cards = append(v.Cards, cardFor(s, color))
	}
	v.Count = len(v.Cards)
	return v
}

func cellFor(c calendar.Cell) cellView {
	hex := func(col calendar.Color) string {
		if c.OutsideMonth {
			col = col.Muted()
		}
		return col.Hex()
	}
	cv := cellView{
		Date:    daterange.FormatISO(c.Date),
		Day:     c.Day(),
		State:   string(c.State),
		Outside: c.OutsideMonth,
	}
	switch c.State {
	case calendar.StateTurnover:
		cv.Departing = hex(*c.Fill.Departing)
		cv.Arriving = hex(*c.Fill.Arriving)
		cv.Style = template.CSS(fmt.Sprintf("background: linear-gradient(135deg, %s 50%%, %s 50%%)", cv.Departing, cv.Arriving))
	case calendar.StateDeparture:
		cv.Departing = hex(*c.Fill.Departing)
		cv.Style = template.CSS(fmt.Sprintf("background: linear-gradient(135deg, %s 50%%, #ffffff 50%%)", cv.Departing))
	case calendar.StateOccupied:
		colors := make([]string, 0, len(c.Fill.Bands))
		for _, b := range c.Fill.Bands {
			colors = append(colors, hex(b))
		}
		cv.Bands = strings.Join(colors, ",")
		cv.Style = template.CSS("background: " + bandGradient(colors))
	}
	return cv
}

// bandGradient builds hard-stop vertical bands of equal width.
func bandGradient(colors []string) string {
	if len(colors) == 1 {
		return colors[0]
	}
	stops := make([]string, 0, len(colors))
	step := 100.0 / float64(len(colors))
	for i, col := range colors {
		from := strconv.FormatFloat(step*float64(i), 'f', 2, 64)
		to := strconv.FormatFloat(step*float64(i+1), 'f', 2, 64)
		stops = append(stops, fmt.Sprintf("%s %s%% %s%%", col, from, to))
	}
	return "linear-gradient(90deg, " + strings.Join(stops, ", ") + ")"
}

func cardFor(s *stays.Stay, color calendar.Color) cardView {
	name := s.GuestName
	if strings.TrimSpace(name) == "" {
		name = "Guest #" + strconv.FormatInt(int64(s.ID), 10)
	}
	fields := []field{
		{"Check-in", longDate(s.CheckIn)},
		{"Check-out", longDate(s.CheckOut)},
		{"Phone", orDash(s.Phone)},
		{"Email", orDash(s.Email)},
		{"Address", orDash(s.Address)},
		{"Nights", strconv.Itoa(s.NightsCount)},
		{"People", strconv.Itoa(s.PeopleCount)},
		{"Linen", linenLabel(s.Linen)},
	}
	if notes := strings.TrimSpace(s.Notes); notes != "" {
		fields = append(fields, field{"Notes", notes})
	}
	return cardView{
		ID:       int64(s.ID),
		Name:     name,
		Color:    color.Hex(),
		ColorCSS: template.CSS(color.Hex()),
		Fields:   fields,
	}
}

func longDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return daterange.FormatLong(*t)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func linenLabel(l stays.Linen) string {
	switch l {
	case stays.LinenIncluded:
		return "Included"
	case stays.LinenNotIncluded:
		return "Not included"
	}
	return "-"
}
