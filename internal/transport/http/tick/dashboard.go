package tickhttp

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"tickagent/internal/tick"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

const dashboardTemplate = "dashboard.html"

func loadTemplates(router *gin.Engine) error {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"price": formatPrice,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

func formatPrice(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

type dashboardRow struct {
	Index int
	tick.HistoryEntry
}

// dashboardPage renders the stored snapshot and history, newest entry first.
func (h *handlers) dashboardPage(c *gin.Context) {
	positions := h.snapshot.Load()
	history := h.history.Load()
	rows := make([]dashboardRow, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		rows = append(rows, dashboardRow{Index: i + 1, HistoryEntry: history[i]})
	}
	c.HTML(http.StatusOK, dashboardTemplate, gin.H{
		"Positions": positions,
		"History":   rows,
	})
}
