package reportgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"claimdesk/internal/domain/claim"
	"claimdesk/internal/errs"
)

const systemPrompt = "Bạn là một Trưởng phòng Quản lý Chất lượng (QC Manager) chuyên nghiệp tại YKK, một công ty sản xuất dây kéo hàng đầu thế giới."

// promptData is also marshalled into the prompt as the raw claim summary.
type promptData struct {
	ID                      string `json:"id"`
	CustomerName            string `json:"customerName"`
	OrderID                 string `json:"orderId"`
	ProductCode             string `json:"productCode"`
	DefectType              string `json:"defectType"`
	Description             string `json:"description"`
	Quantity                int    `json:"quantity"`
	TotalQuantity           int    `json:"totalQuantity"`
	DiscoveryLocation       string `json:"discoveryLocation"`
	CreatorName             string `json:"creatorName"`
	AssigneeName            string `json:"assigneeName"`
	ResponsibleDepartment   string `json:"responsibleDepartment"`
	ContainmentActions      string `json:"containmentActions"`
	TraceabilitySummary     string `json:"traceabilitySummary"`
	AnalysisMethod          string `json:"analysisMethod"`
	AnalysisDetails         string `json:"analysisDetails"`
	RootCause               string `json:"rootCause"`
	CorrectiveActions       string `json:"correctiveActions"`
	PreventiveActions       string `json:"preventiveActions"`
	EffectivenessValidation string `json:"effectivenessValidation"`
	ClosureSummary          string `json:"closureSummary"`
	CustomerConfirmation    string `json:"customerConfirmation"`
}

type promptView struct {
	promptData
	JSON        string
	DefectRatio string
	Date        string
}

var reportTemplate = template.Must(template.New("8d").Parse(`Nhiệm vụ của bạn là tạo ra một Báo cáo 8D chính thức bằng tiếng Việt dựa trên dữ liệu khiếu nại (claim) được cung cấp. Báo cáo phải có cấu trúc rõ ràng, văn phong chuyên nghiệp, và sử dụng chính xác dữ liệu đã cho. Nếu thiếu dữ liệu, hãy ghi là "Chưa xác định" hoặc "Đang điều tra".

Dữ liệu claim như sau:
{{.JSON}}

Vui lòng tạo báo cáo theo định dạng Markdown với cấu trúc sau:

# Báo cáo 8D - Phân tích & Giải quyết Vấn đề - Claim: {{.ID}}

---

## D1: Thành lập đội xử lý (Form the Team)
- **Trưởng nhóm:** {{.CreatorName}} (QC)
- **Thành viên chính:** {{.AssigneeName}} ({{.ResponsibleDepartment}})
- **Các bộ phận liên quan:** QC, {{.ResponsibleDepartment}}, và các bộ phận khác được yêu cầu.

---

## D2: Mô tả vấn đề (Describe the Problem)
- **Khách hàng:** {{.CustomerName}}
- **Sản phẩm:** {{.ProductCode}}
- **Đơn hàng:** {{.OrderID}}
- **Vấn đề:** {{.DefectType}}
- **Mô tả chi tiết:** {{.Description}}
- **Số lượng ảnh hưởng:** {{.Quantity}} trên tổng số {{.TotalQuantity}} ({{.DefectRatio}}%)
- **Nơi phát hiện:** {{.DiscoveryLocation}}

---

## D3: Hành động ngăn chặn tạm thời (Implement Containment Actions)
{{.ContainmentActions}}

---

## D4: Phân tích & Xác định Nguyên nhân gốc rễ (Identify & Verify Root Cause)
- **Phương pháp phân tích:** {{.AnalysisMethod}}
- **Kết quả truy xuất nguồn gốc:** {{.TraceabilitySummary}}
- **Phân tích chi tiết:**
{{.AnalysisDetails}}
- **Nguyên nhân gốc rễ đã xác định:** {{.RootCause}}

---

## D5: Lựa chọn & Xác minh Hành động khắc phục (Choose & Verify Corrective Actions)
{{.CorrectiveActions}}

---

## D6: Thực thi Hành động khắc phục vĩnh viễn (Implement Permanent Corrective Actions)
(AI, vui lòng diễn giải các hành động ở D5 thành kế hoạch thực thi chi tiết hơn nếu có thể)
{{.CorrectiveActions}}

---

## D7: Ngăn chặn tái diễn (Prevent Recurrence)
- **Hành động phòng ngừa:** {{.PreventiveActions}}
- **Xác nhận hiệu quả:** {{.EffectivenessValidation}}

---

## D8: Ghi nhận & Chúc mừng đội (Congratulate the Team)
- **Tóm tắt đóng claim:** {{.ClosureSummary}}
- **Xác nhận từ khách hàng:** {{.CustomerConfirmation}}

---
*Báo cáo được tạo tự động bởi hệ thống YKK CCMS AI vào ngày {{.Date}}.*
`))

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func fishboneSummary(f claim.FishboneAnalysis) string {
	lines := make([]string, 0, len(f.Categories))
	for _, category := range f.Categories {
		causes := strings.Join(category.Causes, ", ")
		lines = append(lines, fmt.Sprintf("  - %s: %s", category.Name, orDefault(causes, "Chưa xác định")))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt renders the 8D instruction for c. The date is printed d/m/yyyy.
func BuildPrompt(c claim.Claim, now time.Time) (string, error) {
	details := orDefault(c.RootCause.FiveWhys, "Chưa có phân tích chi tiết.")
	if c.RootCause.Method == claim.MethodFishbone {
		details = fishboneSummary(c.RootCause.Fishbone)
	}
	confirmation := "Chưa xác nhận"
	if c.CustomerConfirmation {
		confirmation = "Đã xác nhận"
	}

	data := promptData{
		ID:                      c.ID,
		CustomerName:            c.CustomerName,
		OrderID:                 c.OrderID,
		ProductCode:             c.ProductCode,
		DefectType:              c.DefectType,
		Description:             c.Description,
		Quantity:                c.Quantity,
		TotalQuantity:           c.TotalQuantity,
		DiscoveryLocation:       c.DiscoveryLocation,
		CreatorName:             c.Creator.Name,
		AssigneeName:            c.Assignee.Name,
		ResponsibleDepartment:   c.ResponsibleDepartment,
		ContainmentActions:      orDefault(c.ContainmentActions, "Chưa có hành động."),
		TraceabilitySummary:     orDefault(c.Traceability.Summary, "Chưa có tổng kết."),
		AnalysisMethod:          orDefault(string(c.RootCause.Method), "Chưa xác định."),
		AnalysisDetails:         details,
		RootCause:               orDefault(c.RootCause.RootCause, "Chưa xác định."),
		CorrectiveActions:       orDefault(c.CorrectiveActions, "Chưa xác định."),
		PreventiveActions:       orDefault(c.PreventiveActions, "Chưa xác định."),
		EffectivenessValidation: orDefault(c.EffectivenessValidation, "Chưa xác định."),
		ClosureSummary:          orDefault(c.ClosureSummary, "Chưa có tóm tắt."),
		CustomerConfirmation:    confirmation,
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", errs.Wrap(err, "marshal claim summary")
	}

	ratio := 0.0
	if c.TotalQuantity > 0 {
		ratio = float64(c.Quantity) / float64(c.TotalQuantity) * 100
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, promptView{
		promptData:  data,
		JSON:        string(raw),
		DefectRatio: fmt.Sprintf("%.2f", ratio),
		Date:        fmt.Sprintf("%d/%d/%d", now.Day(), int(now.Month()), now.Year()),
	}); err != nil {
		return "", errs.Wrap(err, "render report prompt")
	}
	return buf.String(), nil
}
