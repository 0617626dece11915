package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

func (s *Server) handleExportEarnings(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	earnings, err := s.repos.Partners().ListEarnings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Earnings"
	f.SetSheetName("Sheet1", sheet)
	headers := []any{"Partner ID", "Order ID", "Promo Code ID", "Commission %", "Amount", "Created At"}
	_ = f.SetSheetRow(sheet, "A1", &headers)
	for i, e := range earnings {
		row := []any{
			e.PartnerID.String(),
			e.OrderID.String(),
			e.PromoCodeID.String(),
			e.CommissionPct,
			e.Amount,
			e.CreatedAt.Format(time.RFC3339),
		}
		_ = f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row)
	}
	sendWorkbook(w, f, "partner-earnings")
}

func (s *Server) handleExportInventory(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", http.StatusMethodNotAllowed)
		return
	}
	var variantID *uuid.UUID
	if raw := r.URL.Query().Get("variant_id"); raw != "" {
		id, err := parseUUID(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "variant_id must be a uuid"})
			return
		}
		variantID = &id
	}
	entries, err := s.repos.Inventory().ListLog(r.Context(), variantID)
	if err != nil {
		writeError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Inventory"
	f.SetSheetName("Sheet1", sheet)
	headers := []any{"Variant ID", "Delta", "Previous", "New", "Reason", "Reference", "Actor", "Created At"}
	_ = f.SetSheetRow(sheet, "A1", &headers)
	for i, e := range entries {
		ref := ""
		if e.ReferenceID != nil {
			ref = e.ReferenceID.String()
		}
		row := []any{
			e.VariantID.String(),
			e.Delta,
			e.PrevQuantity,
			e.NewQuantity,
			string(e.Reason),
			ref,
			e.Actor,
			e.CreatedAt.Format(time.RFC3339),
		}
		_ = f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row)
	}
	sendWorkbook(w, f, "inventory-ledger")
}

func sendWorkbook(w http.ResponseWriter, f *excelize.File, name string) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("workbook write failed")
	}
}
