package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/elo-edu/secretaria-api/internal/models"
)

// PDFRenderer renders issued documents into printable PDFs. Layout is a
// rendering concern only; nothing produced here feeds back into the document
// digest.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

var kindTitles = map[models.DocumentKind]string{
	models.KindTranscript:               "HISTORICO ESCOLAR",
	models.KindMatriculationCertificate: "DECLARACAO DE MATRICULA",
	models.KindCompletionCertificate:    "CERTIFICADO DE CONCLUSAO",
	models.KindAttendanceCertificate:    "DECLARACAO DE FREQUENCIA",
	models.KindTransferGuide:            "GUIA DE TRANSFERENCIA",
	models.KindCompletionDeclaration:    "DECLARACAO DE CONCLUSAO",
	models.KindResultsMinutes:           "ATA DE RESULTADOS",
}

// Render produces the PDF bytes for the full document envelope.
func (r *PDFRenderer) Render(doc *models.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, doc.Institution.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	addr := doc.Institution.Address
	pdf.CellFormat(0, 5, fmt.Sprintf("%s - %s/%s", addr.Street, addr.City, addr.State), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("CNPJ %s", doc.Institution.TaxID), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	title := kindTitles[doc.Kind]
	if title == "" {
		title = "DOCUMENTO ESCOLAR"
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	r.line(pdf, "Nome", doc.Student.Name)
	r.line(pdf, "CPF", doc.Student.CPF)
	r.line(pdf, "RG", doc.Student.RG)
	r.line(pdf, "Data de nascimento", doc.Student.BirthDate)
	pdf.Ln(4)

	r.renderBody(pdf, doc)

	pdf.Ln(6)
	if doc.Observations != "" {
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, doc.Observations, "", "L", false)
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(0, 4, doc.LegalNotice, "", "L", false)

	if doc.QRCode != "" {
		if png, err := decodeDataURL(doc.QRCode); err == nil {
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("qr-"+doc.ID, opts, bytes.NewReader(png))
			pdf.ImageOptions("qr-"+doc.ID, pageWidth-55, 225, 35, 35, false, opts, 0, "")
		}
		pdf.SetFont("Arial", "", 8)
		pdf.SetXY(pageWidth-60, 261)
		pdf.CellFormat(45, 4, fmt.Sprintf("Codigo: %s", doc.ID), "", 0, "C", false, 0, "")
	}

	pdf.SetXY(15, 255)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, doc.Institution.Signer.Name, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, doc.Institution.Signer.Role, "", 1, "L", false, 0, "")
	if doc.Signature != nil {
		pdf.CellFormat(0, 5, "Documento assinado digitalmente", "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) renderBody(pdf *gofpdf.Fpdf, doc *models.Document) {
	switch body := doc.Body.(type) {
	case models.TranscriptBody:
		r.renderYears(pdf, body.Years)
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Media geral: %.2f  Frequencia geral: %.1f%%",
			body.Summary.OverallAverage, body.Summary.OverallAttendance), "", 1, "L", false, 0, "")
	case models.TransferBody:
		r.line(pdf, "Escola de destino", body.DestinationSchool)
		r.line(pdf, "Motivo", body.Reason)
		pdf.Ln(2)
		r.renderYears(pdf, body.Years)
	case models.MatriculationBody:
		r.line(pdf, "Matricula", body.Registration)
		r.line(pdf, "Serie/Turma", fmt.Sprintf("%s %s", body.GradeLevel, body.ClassGroup))
		r.line(pdf, "Ano letivo", fmt.Sprintf("%d", body.SchoolYear))
		r.line(pdf, "Situacao", body.Situation)
	case models.CompletionBody:
		r.line(pdf, "Nivel de ensino", body.EducationLevel)
		r.line(pdf, "Conclusao", body.CompletedAt)
		r.line(pdf, "Resultado", body.Result)
	case models.AttendanceBody:
		r.line(pdf, "Periodo", fmt.Sprintf("%s a %s", body.PeriodStart, body.PeriodEnd))
		r.line(pdf, "Frequencia", fmt.Sprintf("%.1f%%", body.AttendancePercent))
	case models.ResultsMinutesBody:
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Resultados finais - %d", body.Year), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, entry := range body.Entries {
			pdf.CellFormat(0, 5, fmt.Sprintf("%s - %s", entry.StudentName, entry.Outcome), "", 1, "L", false, 0, "")
		}
	}
}

func (r *PDFRenderer) renderYears(pdf *gofpdf.Fpdf, years []models.YearResult) {
	for _, year := range years {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Ano letivo %d - %s", year.Year, year.Outcome), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 8)
		widths := []float64{80, 30, 35, 35}
		headers := []string{"Disciplina", "Media", "Frequencia", "Situacao"}
		for i, h := range headers {
			pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
		for _, disc := range year.Disciplines {
			pdf.CellFormat(widths[0], 5, disc.Name, "1", 0, "", false, 0, "")
			pdf.CellFormat(widths[1], 5, fmt.Sprintf("%.2f", disc.Average), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[2], 5, fmt.Sprintf("%.1f%%", disc.AttendancePercent), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[3], 5, string(disc.Outcome), "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(3)
	}
}

func (r *PDFRenderer) line(pdf *gofpdf.Fpdf, label, value string) {
	if value == "" {
		return
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("%s: %s", label, value), "", 1, "L", false, 0, "")
}

func decodeDataURL(dataURL string) ([]byte, error) {
	idx := strings.Index(dataURL, ",")
	if idx < 0 {
		return base64.StdEncoding.DecodeString(dataURL)
	}
	return base64.StdEncoding.DecodeString(dataURL[idx+1:])
}
