package bankxmov

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	StatementPDF = "pdf"
	StatementCSV = "csv"

	maxStatementRows = 1000
)

type StatementReq struct {
	IBAN     string
	Username string
	Format   string
}

var statementHeader = []string{"ID", "Date", "Type", "Counterparty", "Amount"}

// Statement writes the movements of an account owned by req.Username, newest first.
func (s *serviceImpl) Statement(ctx context.Context, w io.Writer, req StatementReq) error {
	iban := normalizeIBAN(req.IBAN)
	owned, err := s.repo.AccountsByOwner(ctx, req.Username)
	if err != nil {
		s.log.Err(err).Str("method", "statement").Msg("error looking up accounts")
		return err
	}
	var acct *Account
	for i := range owned {
		if owned[i].IBAN == iban {
			acct = &owned[i]
			break
		}
	}
	if acct == nil {
		return ErrForbidden{Reason: "user does not own the account"}
	}

	notDeleted := false
	movs, _, err := s.repo.ListMovements(ctx, MovementFilter{
		IBAN:    iban,
		Deleted: &notDeleted,
		Size:    maxStatementRows,
		Sort:    "createdAt,desc",
	})
	if err != nil {
		s.log.Err(err).Str("method", "statement").Msg("error listing movements")
		return err
	}

	rows := statementRows(acct.IBAN, movs, s.loc)
	if strings.ToLower(req.Format) == StatementCSV {
		return writeStatementCSV(w, rows)
	}
	return writeStatementPDF(w, acct, rows, s.now())
}

func statementRows(iban string, movs []Movement, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(movs))
	for i := range movs {
		m := &movs[i]
		counterparty := m.DestinationIBAN
		if iban == m.DestinationIBAN {
			counterparty = m.ReferenceIBAN
		}
		if m.CardNumber != "" {
			counterparty = maskCardNumber(m.CardNumber)
		}
		rows = append(rows, []string{
			m.ID.String(),
			m.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			string(m.Type),
			counterparty,
			m.SignedAmount(iban).StringFixed(2),
		})
	}
	return rows
}

func writeStatementCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(statementHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv statement: %w", err)
	}
	return nil
}

func writeStatementPDF(w io.Writer, acct *Account, rows [][]string, now time.Time) error {
	widths := []float64{42, 32, 32, 52, 32}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Statement "+acct.IBAN, true)
	pdf.SetCreationDate(now)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Account statement", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "IBAN: "+acct.IBAN, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Balance: "+acct.Balance.StringFixed(2), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Issued: "+now.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range statementHeader {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for i, col := range row {
			align := "L"
			if i == len(row)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, col, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf statement: %w", err)
	}
	return nil
}
