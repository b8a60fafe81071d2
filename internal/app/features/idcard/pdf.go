// internal/app/features/idcard/pdf.go
package idcard

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/combinefoundation/portal/internal/domain/models"
	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// Card dimensions follow the ISO/IEC 7810 ID-1 format, in millimeters.
const (
	cardWidth  = 85.6
	cardHeight = 54.0
)

const maxPhotoBytes = 5 << 20

// photoClient fetches holder photos from the image host. Bounded so a
// slow host cannot stall a download for long.
var photoClient = &http.Client{Timeout: 5 * time.Second}

// renderPDF lays out the card as two ID-1 sized pages: the front with the
// holder's photo and identity fields, the back with the QR code, validity
// window, CNIC, and return boilerplate. A photo or QR failure does not
// abort the export; the affected slot renders as a placeholder box.
func renderPDF(u *models.User, card *models.IDCard, siteName string) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: cardWidth, Ht: cardHeight},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)

	renderFront(pdf, u, card, siteName)
	renderBack(pdf, u, card)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render id card pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderFront(pdf *fpdf.Fpdf, u *models.User, card *models.IDCard, siteName string) {
	pdf.AddPage()

	// Header band.
	pdf.SetFillColor(24, 58, 110)
	pdf.Rect(0, 0, cardWidth, 12, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(4, 3)
	pdf.CellFormat(cardWidth-8, 6, siteName, "", 0, "L", false, 0, "")

	drawPhoto(pdf, u.PhotoURL)

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(30, 16)
	pdf.CellFormat(50, 5, u.FullName, "", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(50, 4, strings.ToUpper(u.Role), "", 2, "L", false, 0, "")
	pdf.CellFormat(50, 4, "ID: "+card.IDNumber, "", 2, "L", false, 0, "")
	pdf.CellFormat(50, 4, "Joined: "+u.CreatedAt.Format("02 Jan 2006"), "", 2, "L", false, 0, "")
	if u.Phone != "" {
		pdf.CellFormat(50, 4, "Phone: "+u.Phone, "", 2, "L", false, 0, "")
	}
}

func renderBack(pdf *fpdf.Fpdf, u *models.User, card *models.IDCard) {
	pdf.AddPage()

	drawQR(pdf, card.QRPayload)

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(4, 6)
	pdf.CellFormat(50, 4, "Valid from: "+card.ValidFrom.Format("02 Jan 2006"), "", 2, "L", false, 0, "")
	pdf.CellFormat(50, 4, "Valid thru: "+card.ValidThru.Format("02 Jan 2006"), "", 2, "L", false, 0, "")
	if u.CNIC != "" {
		pdf.CellFormat(50, 4, "CNIC: "+u.CNIC, "", 2, "L", false, 0, "")
	}

	pdf.SetTextColor(90, 90, 90)
	pdf.SetFont("Helvetica", "", 5.5)
	pdf.SetXY(4, cardHeight-14)
	pdf.MultiCell(cardWidth-34, 3,
		"This card remains the property of the issuing organization. "+
			"In an emergency, or if found, contact the organization and "+
			"quote the card number above.", "", "L", false)
}

// drawPhoto places the holder photo in the front-left slot, degrading to
// an empty placeholder box when there is no photo or the fetch fails.
func drawPhoto(pdf *fpdf.Fpdf, photoURL string) {
	const w, h = 20.0, 25.0
	const x, y = 4.0, 16.0

	data, imgType := fetchPhoto(photoURL)
	if data == nil {
		pdf.SetDrawColor(150, 150, 150)
		pdf.Rect(x, y, w, h, "D")
		pdf.SetFont("Helvetica", "", 5)
		pdf.SetXY(x, y+h/2)
		pdf.CellFormat(w, 3, "no photo", "", 0, "C", false, 0, "")
		return
	}

	opts := fpdf.ImageOptions{ImageType: imgType, ReadDpi: false}
	pdf.RegisterImageOptionsReader("holder-photo", opts, bytes.NewReader(data))
	pdf.ImageOptions("holder-photo", x, y, w, h, false, opts, 0, "")
}

// fetchPhoto downloads the photo and reports the fpdf image type, or
// (nil, "") when the photo is absent, unreachable, or not a supported
// format.
func fetchPhoto(url string) ([]byte, string) {
	if url == "" {
		return nil, ""
	}
	resp, err := photoClient.Get(url)
	if err != nil {
		return nil, ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil || len(data) == 0 {
		return nil, ""
	}
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return data, "JPG"
	case "image/png":
		return data, "PNG"
	case "image/gif":
		return data, "GIF"
	default:
		return nil, ""
	}
}

func drawQR(pdf *fpdf.Fpdf, payload string) {
	const size = 24.0
	x := cardWidth - size - 4
	y := (cardHeight - size) / 2

	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		pdf.SetDrawColor(150, 150, 150)
		pdf.Rect(x, y, size, size, "D")
		pdf.SetFont("Helvetica", "", 5)
		pdf.SetXY(x, y+size/2)
		pdf.CellFormat(size, 3, "QR unavailable", "", 0, "C", false, 0, "")
		return
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("card-qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("card-qr", x, y, size, size, false, opts, 0, "")
}
