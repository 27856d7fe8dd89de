//go:build mupdf && cgo

// MuPDF-backed implementation of the document accessor.
//
// Build with: go build -tags mupdf
//
// Requires MuPDF development libraries to be installed.
package doc

/*
#cgo LDFLAGS: -lmupdf -lfreetype -lharfbuzz -lgumbo -lopenjp2 -ljbig2dec -ljpeg -lz
#include <stdlib.h>
#include <string.h>
#include <mupdf/fitz.h>
#include <mupdf/pdf.h>

// Helper to create a context with document handlers registered.
static fz_context* new_context() {
	fz_context *ctx = fz_new_context(NULL, NULL, FZ_STORE_DEFAULT);
	if (ctx) {
		fz_try(ctx) {
			fz_register_document_handlers(ctx);
		}
		fz_catch(ctx) {
		}
	}
	return ctx;
}

static pdf_document* open_pdf_document(fz_context *ctx, const char *filename) {
	pdf_document *doc = NULL;
	fz_try(ctx) {
		doc = pdf_open_document(ctx, filename);
	}
	fz_catch(ctx) {
		return NULL;
	}
	return doc;
}

static fz_rect get_page_bounds(fz_context *ctx, pdf_document *doc, int page_num) {
	fz_rect bounds = fz_empty_rect;
	fz_try(ctx) {
		pdf_page *page = pdf_load_page(ctx, doc, page_num);
		bounds = pdf_bound_page(ctx, page);
		fz_drop_page(ctx, (fz_page*)page);
	}
	fz_catch(ctx) {
	}
	return bounds;
}

// Renders a page as RGB at the given zoom. The caller frees the returned
// buffer; width/height receive the pixmap dimensions.
static unsigned char* render_page_rgb(fz_context *ctx, pdf_document *doc, int page_num,
                                      float zoom, int *width, int *height) {
	unsigned char *out = NULL;
	fz_try(ctx) {
		pdf_page *page = pdf_load_page(ctx, doc, page_num);
		fz_matrix mat = fz_scale(zoom, zoom);
		fz_pixmap *pix = fz_new_pixmap_from_page(ctx, (fz_page*)page, mat,
			fz_device_rgb(ctx), 0);
		*width = fz_pixmap_width(ctx, pix);
		*height = fz_pixmap_height(ctx, pix);
		size_t n = (size_t)(*width) * (size_t)(*height) * 3;
		out = (unsigned char*)malloc(n);
		if (out) {
			memcpy(out, fz_pixmap_samples(ctx, pix), n);
		}
		fz_drop_pixmap(ctx, pix);
		fz_drop_page(ctx, (fz_page*)page);
	}
	fz_catch(ctx) {
		return NULL;
	}
	return out;
}

// A glyph run with uniform style, and the line it came from.
typedef struct {
	char *text;
	float x0, y0, x1, y1;
	char *font;
	float size;
	int bold;
	unsigned int color;
	int line_index;
} span_info;

static void free_spans(span_info *spans, int count) {
	if (!spans) return;
	for (int i = 0; i < count; i++) {
		free(spans[i].text);
		free(spans[i].font);
	}
	free(spans);
}

// Extracts style-uniform glyph runs from a page. Consecutive characters on
// one line sharing font, size and color are grouped into one span.
static int extract_spans(fz_context *ctx, pdf_document *doc, int page_num,
                         span_info **spans_out, int *count_out) {
	*spans_out = NULL;
	*count_out = 0;

	fz_try(ctx) {
		pdf_page *page = pdf_load_page(ctx, doc, page_num);
		fz_stext_page *stext = fz_new_stext_page_from_page(ctx, (fz_page*)page, NULL);

		int cap = 64, count = 0;
		span_info *spans = (span_info*)calloc(cap, sizeof(span_info));
		int line_index = 0;

		fz_stext_block *block;
		for (block = stext->first_block; block; block = block->next) {
			if (block->type != FZ_STEXT_BLOCK_TEXT) continue;
			fz_stext_line *line;
			for (line = block->u.t.first_line; line; line = line->next, line_index++) {
				fz_font *cur_font = NULL;
				float cur_size = 0;
				unsigned int cur_color = 0;
				fz_buffer *buf = NULL;
				fz_rect bbox = fz_empty_rect;

				fz_stext_char *ch;
				for (ch = line->first_char; ch; ch = ch->next) {
					unsigned int color = (unsigned int)(ch->argb & 0xFFFFFF);
					if (!buf || ch->font != cur_font || ch->size != cur_size ||
					    color != cur_color) {
						if (buf) {
							// Flush the previous run.
							if (count == cap) {
								cap *= 2;
								spans = (span_info*)realloc(spans, cap * sizeof(span_info));
							}
							unsigned char *data = NULL;
							size_t len = fz_buffer_extract(ctx, buf, &data);
							spans[count].text = (char*)malloc(len + 1);
							memcpy(spans[count].text, data, len);
							spans[count].text[len] = '\0';
							fz_free(ctx, data);
							fz_drop_buffer(ctx, buf);
							spans[count].x0 = bbox.x0;
							spans[count].y0 = bbox.y0;
							spans[count].x1 = bbox.x1;
							spans[count].y1 = bbox.y1;
							spans[count].font = strdup(fz_font_name(ctx, cur_font));
							spans[count].size = cur_size;
							spans[count].bold = fz_font_is_bold(ctx, cur_font);
							spans[count].color = cur_color;
							spans[count].line_index = line_index;
							count++;
						}
						buf = fz_new_buffer(ctx, 64);
						bbox = fz_empty_rect;
						cur_font = ch->font;
						cur_size = ch->size;
						cur_color = color;
					}
					char utf8[8];
					int len = fz_runetochar(utf8, ch->c);
					fz_append_data(ctx, buf, utf8, len);
					bbox = fz_union_rect(bbox, fz_rect_from_quad(ch->quad));
				}
				if (buf) {
					if (count == cap) {
						cap *= 2;
						spans = (span_info*)realloc(spans, cap * sizeof(span_info));
					}
					unsigned char *data = NULL;
					size_t len = fz_buffer_extract(ctx, buf, &data);
					spans[count].text = (char*)malloc(len + 1);
					memcpy(spans[count].text, data, len);
					spans[count].text[len] = '\0';
					fz_free(ctx, data);
					fz_drop_buffer(ctx, buf);
					spans[count].x0 = bbox.x0;
					spans[count].y0 = bbox.y0;
					spans[count].x1 = bbox.x1;
					spans[count].y1 = bbox.y1;
					spans[count].font = strdup(fz_font_name(ctx, cur_font));
					spans[count].size = cur_size;
					spans[count].bold = fz_font_is_bold(ctx, cur_font);
					spans[count].color = cur_color;
					spans[count].line_index = line_index;
					count++;
				}
			}
		}

		*spans_out = spans;
		*count_out = count;
		fz_drop_stext_page(ctx, stext);
		fz_drop_page(ctx, (fz_page*)page);
	}
	fz_catch(ctx) {
		return -1;
	}
	return 0;
}

// Applies a batch of redaction rectangles to a page in one operation.
// With preserve_graphics set, only text is removed; images and line art
// inside the rectangles are kept.
static int redact_page(fz_context *ctx, pdf_document *doc, int page_num,
                       const float *rects, int rect_count, int preserve_graphics) {
	fz_try(ctx) {
		pdf_page *page = pdf_load_page(ctx, doc, page_num);
		for (int i = 0; i < rect_count; i++) {
			pdf_annot *annot = pdf_create_annot(ctx, page, PDF_ANNOT_REDACT);
			fz_rect r;
			r.x0 = rects[i*4+0];
			r.y0 = rects[i*4+1];
			r.x1 = rects[i*4+2];
			r.y1 = rects[i*4+3];
			pdf_set_annot_rect(ctx, annot, r);
			pdf_drop_annot(ctx, annot);
		}
		pdf_redact_options opts = { 0 };
		opts.black_boxes = 0;
		if (preserve_graphics) {
			opts.image_method = PDF_REDACT_IMAGE_NONE;
			opts.line_art = PDF_REDACT_LINE_ART_NONE;
		} else {
			opts.image_method = PDF_REDACT_IMAGE_REMOVE;
			opts.line_art = PDF_REDACT_LINE_ART_REMOVE_COVERED;
		}
		pdf_apply_redactions(ctx, page, &opts);
		fz_drop_page(ctx, (fz_page*)page);
	}
	fz_catch(ctx) {
		return -1;
	}
	return 0;
}

// Draws one line of text at a baseline position. CJK text is embedded via
// a CID font and hex-encoded; Latin text uses a Base14 font.
static int draw_text_line(fz_context *ctx, pdf_document *doc, int page_num,
                          const char *text, const char *font_name,
                          float x, float y, float size,
                          float r, float g, float b, const char *font_path) {
	fz_try(ctx) {
		pdf_page *page = pdf_load_page(ctx, doc, page_num);

		fz_font *font = NULL;
		pdf_obj *font_obj = NULL;
		int cjk = font_path && font_path[0] != '\0';
		if (cjk) {
			font = fz_new_font_from_file(ctx, NULL, font_path, 0, 0);
			font_obj = pdf_add_cjk_font(ctx, doc, font, FZ_ADOBE_GB, 0, 1);
		} else {
			font = fz_new_base14_font(ctx, "Helvetica");
			font_obj = pdf_add_simple_font(ctx, doc, font, PDF_SIMPLE_ENCODING_LATIN);
		}

		fz_buffer *buf = fz_new_buffer(ctx, 256);
		fz_append_printf(ctx, buf, "BT\n%.3f %.3f %.3f rg\n/%s %.2f Tf\n%.2f %.2f Td\n",
			r, g, b, font_name, size, x, y);
		if (cjk) {
			fz_append_string(ctx, buf, "<");
			const unsigned char *p = (const unsigned char *)text;
			while (*p) {
				int c = 0;
				if ((*p & 0x80) == 0) {
					c = *p++;
				} else if ((*p & 0xE0) == 0xC0) {
					c = (*p++ & 0x1F) << 6;
					c |= (*p++ & 0x3F);
				} else if ((*p & 0xF0) == 0xE0) {
					c = (*p++ & 0x0F) << 12;
					c |= (*p++ & 0x3F) << 6;
					c |= (*p++ & 0x3F);
				} else if ((*p & 0xF8) == 0xF0) {
					c = (*p++ & 0x07) << 18;
					c |= (*p++ & 0x3F) << 12;
					c |= (*p++ & 0x3F) << 6;
					c |= (*p++ & 0x3F);
				} else {
					p++;
					continue;
				}
				fz_append_printf(ctx, buf, "%04X", c);
			}
			fz_append_string(ctx, buf, "> Tj\n");
		} else {
			// text arrives pre-escaped: \, ( and ) are already backslashed.
			fz_append_printf(ctx, buf, "(%s) Tj\n", text);
		}
		fz_append_string(ctx, buf, "ET\n");

		pdf_obj *resources = pdf_dict_get(ctx, page->obj, PDF_NAME(Resources));
		if (!resources) {
			resources = pdf_new_dict(ctx, doc, 1);
			pdf_dict_put(ctx, page->obj, PDF_NAME(Resources), resources);
		}
		pdf_obj *fonts = pdf_dict_get(ctx, resources, PDF_NAME(Font));
		if (!fonts) {
			fonts = pdf_new_dict(ctx, doc, 1);
			pdf_dict_put(ctx, resources, PDF_NAME(Font), fonts);
		}
		pdf_dict_puts(ctx, fonts, font_name, font_obj);

		pdf_obj *contents = pdf_add_stream(ctx, doc, buf, NULL, 0);
		pdf_obj *old_contents = pdf_dict_get(ctx, page->obj, PDF_NAME(Contents));
		if (old_contents) {
			pdf_obj *arr = pdf_new_array(ctx, doc, 2);
			if (pdf_is_array(ctx, old_contents)) {
				int n = pdf_array_len(ctx, old_contents);
				for (int i = 0; i < n; i++) {
					pdf_array_push(ctx, arr, pdf_array_get(ctx, old_contents, i));
				}
			} else {
				pdf_array_push(ctx, arr, old_contents);
			}
			pdf_array_push(ctx, arr, contents);
			pdf_dict_put(ctx, page->obj, PDF_NAME(Contents), arr);
		} else {
			pdf_dict_put(ctx, page->obj, PDF_NAME(Contents), contents);
		}

		fz_drop_buffer(ctx, buf);
		if (font) fz_drop_font(ctx, font);
		fz_drop_page(ctx, (fz_page*)page);
	}
	fz_catch(ctx) {
		return -1;
	}
	return 0;
}

static int save_pdf(fz_context *ctx, pdf_document *doc, const char *filename) {
	fz_try(ctx) {
		pdf_save_document(ctx, doc, filename, NULL);
	}
	fz_catch(ctx) {
		return -1;
	}
	return 0;
}
*/
import "C"

import (
	"errors"
	"image"
	"unsafe"

	"pdf-layout-translator/internal/geom"
)

var (
	ErrNotAvailable  = errors.New("doc: mupdf backend not available")
	ErrOpenDocument  = errors.New("doc: failed to open document")
	ErrInvalidPage   = errors.New("doc: invalid page number")
	ErrExtract       = errors.New("doc: failed to extract text")
	ErrRender        = errors.New("doc: failed to render page")
	ErrRedact        = errors.New("doc: failed to apply redactions")
	ErrInsert        = errors.New("doc: failed to insert text")
	ErrSaveDocument  = errors.New("doc: failed to save document")
	ErrContextCreate = errors.New("doc: failed to create context")
)

// fitzDocument implements Document on a MuPDF pdf_document.
type fitzDocument struct {
	ctx      *C.fz_context
	doc      *C.pdf_document
	zoom     float64
	fontPath string
	fontSeq  int
}

// nextFontName hands out a fresh Font resource key for each text draw.
func (d *fitzDocument) nextFontName() string {
	d.fontSeq++
	return fontResourceName(d.fontSeq)
}

// Open opens a PDF for layout-preserving translation. zoom is the fixed
// factor used for page rendering (detector pixel space); fontPath is the
// CJK-capable font used for insertion, empty for Base14 only.
func Open(path string, zoom float64, fontPath string) (Document, error) {
	ctx := C.new_context()
	if ctx == nil {
		return nil, ErrContextCreate
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	d := C.open_pdf_document(ctx, cPath)
	if d == nil {
		C.fz_drop_context(ctx)
		return nil, ErrOpenDocument
	}
	return &fitzDocument{ctx: ctx, doc: d, zoom: zoom, fontPath: fontPath}, nil
}

func (d *fitzDocument) PageCount() int {
	return int(C.pdf_count_pages(d.ctx, d.doc))
}

func (d *fitzDocument) Page(index int) (Page, error) {
	if index < 0 || index >= d.PageCount() {
		return nil, ErrInvalidPage
	}
	bounds := C.get_page_bounds(d.ctx, d.doc, C.int(index))
	return &fitzPage{
		doc:    d,
		number: index,
		bounds: geom.Rect{
			X0: float64(bounds.x0), Y0: float64(bounds.y0),
			X1: float64(bounds.x1), Y1: float64(bounds.y1),
		},
	}, nil
}

func (d *fitzDocument) Save(path string) error {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	if C.save_pdf(d.ctx, d.doc, cPath) != 0 {
		return ErrSaveDocument
	}
	return nil
}

func (d *fitzDocument) Close() error {
	if d.doc != nil {
		C.pdf_drop_document(d.ctx, d.doc)
		d.doc = nil
	}
	if d.ctx != nil {
		C.fz_drop_context(d.ctx)
		d.ctx = nil
	}
	return nil
}

// fitzPage implements Page. Pending redactions are buffered Go-side and
// committed through a single redact_page call.
type fitzPage struct {
	doc     *fitzDocument
	number  int
	bounds  geom.Rect
	pending []geom.Rect
}

func (p *fitzPage) Number() int       { return p.number }
func (p *fitzPage) Bounds() geom.Rect { return p.bounds }
func (p *fitzPage) Zoom() float64     { return p.doc.zoom }

func (p *fitzPage) RenderImage() (image.Image, error) {
	var w, h C.int
	samples := C.render_page_rgb(p.doc.ctx, p.doc.doc, C.int(p.number),
		C.float(p.doc.zoom), &w, &h)
	if samples == nil {
		return nil, ErrRender
	}
	defer C.free(unsafe.Pointer(samples))

	width, height := int(w), int(h)
	src := C.GoBytes(unsafe.Pointer(samples), C.int(width*height*3))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.Pix[i*4+0] = src[i*3+0]
		img.Pix[i*4+1] = src[i*3+1]
		img.Pix[i*4+2] = src[i*3+2]
		img.Pix[i*4+3] = 0xFF
	}
	return img, nil
}

func (p *fitzPage) Spans() ([]TextSpan, error) {
	spans, _, err := p.extract()
	return spans, err
}

func (p *fitzPage) Lines() ([]TextLine, error) {
	_, lines, err := p.extract()
	return lines, err
}

// extract pulls style-uniform spans from the page and folds them into
// lines using the line index the C layer assigns.
func (p *fitzPage) extract() ([]TextSpan, []TextLine, error) {
	var spansPtr *C.span_info
	var count C.int
	if C.extract_spans(p.doc.ctx, p.doc.doc, C.int(p.number), &spansPtr, &count) != 0 {
		return nil, nil, ErrExtract
	}
	if count == 0 || spansPtr == nil {
		return nil, nil, nil
	}
	defer C.free_spans(spansPtr, count)

	size := unsafe.Sizeof(C.span_info{})
	spans := make([]TextSpan, 0, int(count))
	var lines []TextLine
	lastLine := -1

	for i := 0; i < int(count); i++ {
		si := (*C.span_info)(unsafe.Pointer(uintptr(unsafe.Pointer(spansPtr)) + uintptr(i)*size))
		span := TextSpan{
			Text: C.GoString(si.text),
			Rect: geom.Rect{
				X0: float64(si.x0), Y0: float64(si.y0),
				X1: float64(si.x1), Y1: float64(si.y1),
			},
			Font:  C.GoString(si.font),
			Size:  float64(si.size),
			Bold:  si.bold != 0,
			Color: uint32(si.color),
		}
		spans = append(spans, span)

		if int(si.line_index) != lastLine {
			lines = append(lines, TextLine{Text: span.Text, Rect: span.Rect})
			lastLine = int(si.line_index)
		} else {
			l := &lines[len(lines)-1]
			l.Text += span.Text
			l.Rect = l.Rect.Union(span.Rect)
		}
	}
	return spans, lines, nil
}

func (p *fitzPage) AddRedaction(r geom.Rect) {
	p.pending = append(p.pending, r)
}

func (p *fitzPage) PendingRedactions() int { return len(p.pending) }

func (p *fitzPage) ApplyRedactions(preserveGraphics bool) error {
	if len(p.pending) == 0 {
		return nil
	}
	flat := make([]C.float, 0, len(p.pending)*4)
	for _, r := range p.pending {
		flat = append(flat, C.float(r.X0), C.float(r.Y0), C.float(r.X1), C.float(r.Y1))
	}
	preserve := C.int(0)
	if preserveGraphics {
		preserve = 1
	}
	rc := C.redact_page(p.doc.ctx, p.doc.doc, C.int(p.number),
		&flat[0], C.int(len(p.pending)), preserve)
	if rc != 0 {
		// The pending set is kept so the caller can discard explicitly;
		// nothing was committed.
		return ErrRedact
	}
	p.pending = nil
	return nil
}

func (p *fitzPage) DiscardRedactions() { p.pending = nil }

func (p *fitzPage) InsertTextBox(r geom.Rect, text string, style TextStyle, force bool) (bool, error) {
	lines := LayoutText(text, r.Width(), style.Size)
	fits := float64(len(lines))*style.Size*LineSpacing <= r.Height()
	if !fits && !force {
		return false, nil
	}

	fontPath := ""
	if hasWideRunes(text) {
		fontPath = p.doc.fontPath
	}
	cFont := C.CString(fontPath)
	defer C.free(unsafe.Pointer(cFont))

	red := float64((style.Color>>16)&0xFF) / 255.0
	green := float64((style.Color>>8)&0xFF) / 255.0
	blue := float64(style.Color&0xFF) / 255.0

	// Content stream coordinates have the origin at the bottom-left;
	// page geometry uses top-left.
	pageH := p.bounds.Height()
	for i, line := range lines {
		baseline := r.Y0 + float64(i+1)*style.Size*LineSpacing
		drawn := line
		if fontPath == "" {
			// The simple-font path embeds the line in a () string literal.
			drawn = escapeStringLiteral(line)
		}
		cText := C.CString(drawn)
		cName := C.CString(p.doc.nextFontName())
		rc := C.draw_text_line(p.doc.ctx, p.doc.doc, C.int(p.number),
			cText, cName, C.float(r.X0), C.float(pageH-baseline), C.float(style.Size),
			C.float(red), C.float(green), C.float(blue), cFont)
		C.free(unsafe.Pointer(cName))
		C.free(unsafe.Pointer(cText))
		if rc != 0 {
			return fits, ErrInsert
		}
	}
	return fits, nil
}

func hasWideRunes(s string) bool {
	for _, r := range s {
		if isWide(r) {
			return true
		}
	}
	return false
}

// IsAvailable reports whether the MuPDF backend was compiled in.
func IsAvailable() bool { return true }
