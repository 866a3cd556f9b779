package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/weisyn/p2efarm/internal/app/version"
	"github.com/weisyn/p2efarm/internal/core/alert"
	"github.com/weisyn/p2efarm/internal/core/controller"
	"github.com/weisyn/p2efarm/internal/core/farmview"
	"github.com/weisyn/p2efarm/internal/core/session"
)

// Dashboard 把控制器状态渲染为终端面板
type Dashboard struct {
	out   io.Writer
	theme *ThemeConfig
	clear bool
}

// NewDashboard 创建面板，clear 为 true 时每次渲染前清屏
func NewDashboard(out io.Writer, clear bool) *Dashboard {
	return &Dashboard{out: out, theme: GetDefaultTheme(), clear: clear}
}

// Render 渲染一帧
func (d *Dashboard) Render(v controller.StateView) error {
	frame, err := d.Sprint(v)
	if err != nil {
		return err
	}
	if d.clear {
		frame = "\033[2J\033[H" + frame
	}
	_, err = io.WriteString(d.out, frame)
	return err
}

// Sprint 渲染为字符串
func (d *Dashboard) Sprint(v controller.StateView) (string, error) {
	var b strings.Builder

	b.WriteString(pterm.DefaultHeader.Sprint(fmt.Sprintf("p2efarm %s | %s", version.GetDisplayVersion(), v.Network.Name)))
	b.WriteString("\n")

	account, err := pterm.DefaultTable.WithHasHeader(false).WithData(d.accountRows(v)).Srender()
	if err != nil {
		return "", err
	}
	b.WriteString(account)
	b.WriteString("\n")

	if len(v.Alerts) > 0 {
		b.WriteString(pterm.DefaultSection.Sprint("Alerts"))
		for _, a := range v.Alerts {
			b.WriteString(d.alertLine(a))
			b.WriteString("\n")
		}
	}

	b.WriteString(pterm.DefaultSection.Sprint("Farms"))
	if len(v.Farms) == 0 {
		b.WriteString(pterm.Gray("No farms yet.") + "\n")
		return b.String(), nil
	}
	farms, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(farmRows(v.Farms)).
		Srender()
	if err != nil {
		return "", err
	}
	b.WriteString(farms)
	b.WriteString("\n")
	return b.String(), nil
}

func (d *Dashboard) accountRows(v controller.StateView) [][]string {
	signer := "-"
	if v.Signer != "" {
		signer = v.Signer
	}
	balance := "-"
	if v.Balance != "" {
		balance = v.BalanceFormatted + " " + v.Symbol
	}
	pending := "-"
	if v.Pending != nil {
		pending = fmt.Sprintf("%s %s", v.Pending.Kind, ShortAddress(v.Pending.Hash.Hex()))
	}

	return [][]string{
		{"Session", d.sessionLabel(v.Session)},
		{"Account", signer},
		{"Balance", balance},
		{"Pending", pending},
	}
}

func (d *Dashboard) sessionLabel(state string) string {
	switch state {
	case session.Connected.String():
		return d.theme.SuccessColor.Sprint(state)
	case session.Connecting.String():
		return d.theme.WarningColor.Sprint(state)
	default:
		return d.theme.ErrorColor.Sprint(state)
	}
}

func (d *Dashboard) alertLine(a alert.Alert) string {
	if a.Severity == alert.SeveritySuccess {
		return d.theme.SuccessColor.Sprintf("[%d] ✓ %s", a.ID, a.Message)
	}
	return d.theme.ErrorColor.Sprintf("[%d] ✗ %s", a.ID, a.Message)
}

func farmRows(farms []farmview.FarmView) [][]string {
	rows := [][]string{{"ID", "Capacity", "Rate/s", "Elapsed", "Reward", "Sell price"}}
	for _, f := range farms {
		sell := "-"
		if f.SellPrice != nil {
			sell = f.SellPrice.String()
		}
		rows = append(rows, []string{
			f.Farm.ID.String(),
			fmt.Sprintf("%g (L%s)", f.Estimate.Capacity, f.Farm.CapacityLevel),
			fmt.Sprintf("%g (L%s)", f.Estimate.RewardRate, f.Farm.RateLevel),
			FormatDuration(time.Duration(f.Estimate.ElapsedSeconds) * time.Second),
			fmt.Sprintf("%.2f", f.Estimate.Reward),
			sell,
		})
	}
	return rows
}
