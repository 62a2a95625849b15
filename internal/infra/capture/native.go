package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/net/html"

	"stayregister/internal/app/document"
)

// NativeSurface mounts documents by parsing their HTML and paints the
// document root with the same box geometry as the embedded stylesheet.
// It needs no browser and is safe for concurrent use.
type NativeSurface struct {
	regular *opentype.Font
	bold    *opentype.Font
}

func NewNativeSurface() (*NativeSurface, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &NativeSurface{regular: regular, bold: bold}, nil
}

type nativeHandle struct {
	doc    document.Document
	root   *html.Node
	loaded chan struct{}
}

func (h *nativeHandle) Loaded() <-chan struct{} { return h.loaded }
func (h *nativeHandle) HasRoot() bool           { return h.root != nil }

func (s *NativeSurface) Mount(ctx context.Context, doc document.Document) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(doc.HTML) == 0 {
		return nil, errors.New("empty document")
	}
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("invalid page size %dx%d", doc.Width, doc.Height)
	}
	tree, err := html.Parse(bytes.NewReader(doc.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	h := &nativeHandle{doc: doc, loaded: make(chan struct{})}
	rootID := doc.RootID
	if rootID == "" {
		rootID = document.RootID
	}
	h.root = first(tree, func(n *html.Node) bool { return attr(n, "id") == rootID })
	close(h.loaded)
	return h, nil
}

func (s *NativeSurface) Rasterize(ctx context.Context, handle Handle, scale int) (image.Image, error) {
	h, ok := handle.(*nativeHandle)
	if !ok {
		return nil, errors.New("handle was not mounted by this surface")
	}
	if h.root == nil {
		return nil, ErrDocumentRootMissing
	}
	if scale < 1 {
		scale = 1
	}
	page := extractPage(h.root)
	img := image.NewRGBA(image.Rect(0, 0, h.doc.Width*scale, h.doc.Height*scale))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	p := &painter{img: img, scale: float64(scale), surface: s, faces: make(map[faceKey]font.Face)}
	defer p.close()
	if err := p.paint(ctx, page, float64(h.doc.Width)); err != nil {
		return nil, err
	}
	return img, nil
}

// Teardown releases the parsed tree. Faces are owned by each Rasterize call.
func (s *NativeSurface) Teardown(handle Handle) {
	if h, ok := handle.(*nativeHandle); ok {
		h.root = nil
	}
}

type pageModel struct {
	title    string
	meta     string
	weekdays []string
	cells    []cellModel
	caption  string
	cards    []cardModel
	empty    string
}

type cellModel struct {
	day       string
	state     string
	outside   bool
	departing string
	arriving  string
	bands     []string
}

type cardModel struct {
	name   string
	color  string
	fields [][2]string
}

func extractPage(root *html.Node) pageModel {
	var page pageModel
	if n := first(root, isElement("h1")); n != nil {
		page.title = textOf(n)
	}
	if n := first(root, hasClass("meta")); n != nil {
		page.meta = textOf(n)
	}
	for _, n := range all(root, hasClass("weekday")) {
		page.weekdays = append(page.weekdays, textOf(n))
	}
	for _, n := range all(root, hasClass("day")) {
		c := cellModel{
			day:       attr(n, "data-day"),
			state:     attr(n, "data-state"),
			outside:   attr(n, "data-outside") == "true",
			departing: attr(n, "data-departing"),
			arriving:  attr(n, "data-arriving"),
		}
		if bands := attr(n, "data-bands"); bands != "" {
			c.bands = strings.Split(bands, ",")
		}
		page.cells = append(page.cells, c)
	}
	if n := first(root, hasClass("caption")); n != nil {
		page.caption = textOf(n)
	}
	for _, n := range all(root, hasClass("card")) {
		card := cardModel{color: attr(n, "data-color")}
		if h3 := first(n, isElement("h3")); h3 != nil {
			card.name = textOf(h3)
		}
		var label string
		for _, item := range all(n, func(x *html.Node) bool {
			return x.Type == html.ElementNode && (x.Data == "dt" || x.Data == "dd")
		}) {
			if item.Data == "dt" {
				label = textOf(item)
				continue
			}
			card.fields = append(card.fields, [2]string{label, textOf(item)})
		}
		page.cards = append(page.cards, card)
	}
	if n := first(root, hasClass("empty")); n != nil {
		page.empty = textOf(n)
	}
	return page
}

// Geometry in CSS pixels, mirroring templates/document.gohtml.
const (
	pagePadding   = 32.0
	titleSize     = 26.0
	metaSize      = 13.0
	smallSize     = 11.0
	cardTitleSize = 13.0
	gridGap       = 2.0
	weekdayHeight = 16.0
	cellHeight    = 52.0
	cardGap       = 8.0
	cardPadding   = 9.0
	fieldLine     = 14.0
)

var (
	inkColor     = color.RGBA{0x1f, 0x29, 0x33, 0xff}
	mutedColor   = color.RGBA{0x52, 0x60, 0x6d, 0xff}
	faintColor   = color.RGBA{0x7b, 0x87, 0x94, 0xff}
	borderColor  = color.RGBA{0xe4, 0xe7, 0xeb, 0xff}
	outsideColor = color.RGBA{0x9a, 0xa5, 0xb1, 0xff}
	whiteColor   = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

type box struct {
	x, y, w, h float64
}

// calendarTop is where the weekday row starts.
func calendarTop() float64 {
	return pagePadding + titleSize + 4 + metaSize + 16
}

// cellBox returns the box of grid cell i (0..41).
func cellBox(i int, pageWidth float64) box {
	inner := pageWidth - 2*pagePadding
	colW := (inner - 6*gridGap) / 7
	row, col := i/7, i%7
	return box{
		x: pagePadding + float64(col)*(colW+gridGap),
		y: calendarTop() + weekdayHeight + gridGap + float64(row)*(cellHeight+gridGap),
		w: colW,
		h: cellHeight,
	}
}

type faceKey struct {
	bold bool
	size float64
}

type painter struct {
	img     *image.RGBA
	scale   float64
	surface *NativeSurface
	faces   map[faceKey]font.Face
}

func (p *painter) close() {
	for _, f := range p.faces {
		f.Close()
	}
}

func (p *painter) paint(ctx context.Context, page pageModel, pageWidth float64) error {
	inner := pageWidth - 2*pagePadding
	y := pagePadding
	if err := p.text(pagePadding, y, page.title, titleSize, true, inkColor); err != nil {
		return err
	}
	y += titleSize + 4
	if err := p.text(pagePadding, y, page.meta, metaSize, false, mutedColor); err != nil {
		return err
	}

	for i, wd := range page.weekdays {
		b := cellBox(i, pageWidth)
		w, err := p.measure(wd, smallSize, false)
		if err != nil {
			return err
		}
		if err := p.text(b.x+(b.w-w)/2, calendarTop(), wd, smallSize, false, faintColor); err != nil {
			return err
		}
	}
	for i, c := range page.cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.cell(cellBox(i, pageWidth), c); err != nil {
			return err
		}
	}

	rows := (len(page.cells) + 6) / 7
	y = calendarTop() + weekdayHeight + gridGap + float64(rows)*(cellHeight+gridGap) + 8
	lines, err := p.wrap(page.caption, smallSize, inner)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := p.text(pagePadding, y, line, smallSize, false, mutedColor); err != nil {
			return err
		}
		y += smallSize + 3
	}
	y += 16

	if len(page.cards) == 0 && page.empty != "" {
		return p.text(pagePadding, y, page.empty, 12, false, faintColor)
	}
	cardW := (inner - cardGap) / 2
	for i := 0; i < len(page.cards); i += 2 {
		if err := ctx.Err(); err != nil {
			return err
		}
		rowH := 0.0
		for j := i; j < i+2 && j < len(page.cards); j++ {
			if h := cardHeight(page.cards[j]); h > rowH {
				rowH = h
			}
		}
		for j := i; j < i+2 && j < len(page.cards); j++ {
			x := pagePadding + float64(j-i)*(cardW+cardGap)
			if err := p.card(box{x: x, y: y, w: cardW, h: rowH}, page.cards[j]); err != nil {
				return err
			}
		}
		y += rowH + cardGap
	}
	return nil
}

func cardHeight(c cardModel) float64 {
	return 2*cardPadding + cardTitleSize + 6 + float64(len(c.fields))*fieldLine
}

func (p *painter) cell(b box, c cellModel) error {
	switch c.state {
	case "turnover":
		p.diagonal(b, parseHex(c.departing), parseHex(c.arriving))
	case "departure":
		p.diagonal(b, parseHex(c.departing), whiteColor)
	case "occupied":
		if n := len(c.bands); n > 0 {
			w := b.w / float64(n)
			for i, band := range c.bands {
				p.fill(box{x: b.x + float64(i)*w, y: b.y, w: w, h: b.h}, parseHex(band))
			}
		}
	}
	p.stroke(b, borderColor)
	col := inkColor
	if c.outside {
		col = outsideColor
	}
	return p.text(b.x+5, b.y+3, c.day, smallSize, false, col)
}

func (p *painter) card(b box, c cardModel) error {
	p.stroke(b, borderColor)
	x, y := b.x+cardPadding, b.y+cardPadding
	dot := box{x: x, y: y + 2, w: 10, h: 10}
	p.disc(dot, parseHex(c.color))
	if err := p.text(x+16, y, c.name, cardTitleSize, true, inkColor); err != nil {
		return err
	}
	y += cardTitleSize + 6
	for _, f := range c.fields {
		if err := p.text(x, y, f[0], smallSize, false, faintColor); err != nil {
			return err
		}
		if err := p.text(x+62, y, f[1], smallSize, false, inkColor); err != nil {
			return err
		}
		y += fieldLine
	}
	return nil
}

// device converts a CSS box to device pixels clipped to the image.
func (p *painter) device(b box) image.Rectangle {
	r := image.Rect(
		int(b.x*p.scale), int(b.y*p.scale),
		int((b.x+b.w)*p.scale), int((b.y+b.h)*p.scale),
	)
	return r.Intersect(p.img.Bounds())
}

func (p *painter) fill(b box, c color.RGBA) {
	draw.Draw(p.img, p.device(b), image.NewUniform(c), image.Point{}, draw.Src)
}

func (p *painter) stroke(b box, c color.RGBA) {
	r := p.device(b)
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		p.img.SetRGBA(x, r.Min.Y, c)
		p.img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		p.img.SetRGBA(r.Min.X, y, c)
		p.img.SetRGBA(r.Max.X-1, y, c)
	}
}

// diagonal splits b along the line from its top-right to bottom-left corner:
// upper-left half gets a, lower-right half gets b.
func (p *painter) diagonal(bx box, a, b color.RGBA) {
	full := image.Rect(int(bx.x*p.scale), int(bx.y*p.scale), int((bx.x+bx.w)*p.scale), int((bx.y+bx.h)*p.scale))
	r := full.Intersect(p.img.Bounds())
	w, h := float64(full.Dx()), float64(full.Dy())
	if w == 0 || h == 0 {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		v := float64(y-full.Min.Y) / h
		for x := r.Min.X; x < r.Max.X; x++ {
			u := float64(x-full.Min.X) / w
			if u+v < 1 {
				p.img.SetRGBA(x, y, a)
			} else {
				p.img.SetRGBA(x, y, b)
			}
		}
	}
}

func (p *painter) disc(b box, c color.RGBA) {
	r := p.device(b)
	cx, cy := float64(r.Min.X+r.Max.X)/2, float64(r.Min.Y+r.Max.Y)/2
	rad := float64(r.Dx()) / 2
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= rad*rad {
				p.img.SetRGBA(x, y, c)
			}
		}
	}
}

func (p *painter) face(size float64, bold bool) (font.Face, error) {
	key := faceKey{bold: bold, size: size}
	if f, ok := p.faces[key]; ok {
		return f, nil
	}
	src := p.surface.regular
	if bold {
		src = p.surface.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size * p.scale, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	p.faces[key] = f
	return f, nil
}

// text draws s with its top edge at y (CSS pixels).
func (p *painter) text(x, y float64, s string, size float64, bold bool, c color.RGBA) error {
	if s == "" {
		return nil
	}
	face, err := p.face(size, bold)
	if err != nil {
		return err
	}
	d := font.Drawer{
		Dst:  p.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(int(x * p.scale)), Y: fixed.I(int(y*p.scale)) + face.Metrics().Ascent},
	}
	d.DrawString(s)
	return nil
}

func (p *painter) measure(s string, size float64, bold bool) (float64, error) {
	face, err := p.face(size, bold)
	if err != nil {
		return 0, err
	}
	return float64(font.MeasureString(face, s).Round()) / p.scale, nil
}

func (p *painter) wrap(s string, size float64, width float64) ([]string, error) {
	var lines []string
	var line string
	for _, word := range strings.Fields(s) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		w, err := p.measure(candidate, size, false)
		if err != nil {
			return nil, err
		}
		if w > width && line != "" {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines, nil
}

// parseHex reads #rrggbb; anything else paints white.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return whiteColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return whiteColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

func attr(n *html.Node, key string) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func first(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := first(c, match); found != nil {
			return found
		}
	}
	return nil
}

func all(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if match(x) {
			out = append(out, x)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			sb.WriteString(x.Data)
			sb.WriteByte(' ')
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
