package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// ReceiptService renders payment receipts as PDF attachments
type ReceiptService struct{}

// NewReceiptService creates a new receipt service
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// Generate renders the receipt for a captured payment
func (s *ReceiptService) Generate(payment *entities.Payment, customer *entities.Customer) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Payment Receipt", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Receipt Details", "1", 1, "C", false, 0, "")
	addReceiptRow(pdf, "Receipt No", payment.ID)
	addReceiptRow(pdf, "Customer", customer.FullName)
	addReceiptRow(pdf, "Appointment ID", payment.AppointmentID)
	addReceiptRow(pdf, "Amount", fmt.Sprintf("%.2f %s", payment.Amount, payment.Currency))
	addReceiptRow(pdf, "Status", string(payment.Status))
	if payment.ProviderPaymentID != nil {
		addReceiptRow(pdf, "Payment Reference", *payment.ProviderPaymentID)
	}
	addReceiptRow(pdf, "Date", time.Now().Format("2006-01-02"))

	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 10, "Thank you for your business.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.NewInternalError("failed to render receipt", err)
	}
	return buf.Bytes(), nil
}

func addReceiptRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(60, 8, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, value, "1", 1, "L", false, 0, "")
}
