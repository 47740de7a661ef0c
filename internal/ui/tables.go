package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/papapumpkin/lineage/internal/graph"
	"github.com/papapumpkin/lineage/internal/growth"
	"github.com/papapumpkin/lineage/internal/referral"
	"github.com/papapumpkin/lineage/internal/scenario"
)

// table builds a bordered table with the printer's styles. The first
// data row is emphasised when boldFirst is set.
func (p *Printer) table(headers []string, rows [][]string, boldFirst bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.st.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return p.st.header
			case boldFirst && row == 0:
				return p.st.boldRow
			default:
				return p.st.cell
			}
		})
	return t.String()
}

func (p *Printer) printTable(headers []string, rows [][]string, boldFirst bool) {
	if len(rows) == 0 {
		fmt.Fprintln(p.out, p.st.muted.Render("(none)"))
		return
	}
	fmt.Fprintln(p.out, p.table(headers, rows, boldFirst))
}

// Leaderboard prints ranked referrers.
func (p *Printer) Leaderboard(entries []referral.Ranked) error {
	if p.json {
		if entries == nil {
			entries = []referral.Ranked{}
		}
		return p.JSON(entries)
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{humanize.Ordinal(i + 1), e.Address, humanize.Comma(int64(e.Count))}
	}
	p.printTable([]string{"Rank", "Address", "Referred"}, rows, true)
	return nil
}

// Campaigns prints one row per referral tree.
func (p *Printer) Campaigns(cs []referral.Campaign) error {
	if p.json {
		if cs == nil {
			cs = []referral.Campaign{}
		}
		return p.JSON(cs)
	}
	rows := make([][]string, len(cs))
	for i, c := range cs {
		rows[i] = []string{c.Root, humanize.Comma(int64(c.Size)), strconv.Itoa(c.Depth)}
	}
	p.printTable([]string{"Root", "Members", "Depth"}, rows, false)
	return nil
}

// Influence prints blended influence scores.
func (p *Printer) Influence(scores []referral.Influence) error {
	if p.json {
		if scores == nil {
			scores = []referral.Influence{}
		}
		return p.JSON(scores)
	}
	rows := make([][]string, len(scores))
	for i, s := range scores {
		rows[i] = []string{
			s.Address,
			humanize.FtoaWithDigits(s.Score, 4),
			humanize.FtoaWithDigits(s.PageRank, 4),
			humanize.FtoaWithDigits(s.Betweenness, 4),
		}
	}
	p.printTable([]string{"Address", "Score", "PageRank", "Betweenness"}, rows, true)
	return nil
}

// pathJSON is the JSON shape of a shortest-path answer.
type pathJSON struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Candidate string  `json:"candidate"`
	OnPath    bool    `json:"on_path"`
	Fraction  float64 `json:"fraction"`
	Through   float64 `json:"paths_through"`
	Total     float64 `json:"paths_total"`
	Distance  int     `json:"distance"`
}

// Path prints a shortest-path answer.
func (p *Printer) Path(source, target, candidate string, r graph.GeodesicResult) error {
	if p.json {
		return p.JSON(pathJSON{
			Source: source, Target: target, Candidate: candidate,
			OnPath: r.OnPath, Fraction: r.Fraction, Through: r.Through, Total: r.Total, Distance: r.Distance,
		})
	}
	verdict := p.st.fail.Render("NO")
	if r.OnPath {
		verdict = p.st.ok.Render("YES")
	}
	distance := "unreachable"
	if r.Distance >= 0 {
		distance = strconv.Itoa(r.Distance)
	}
	fmt.Fprintf(p.out, "Is %s on a shortest path %s → %s? %s  fraction=%.4f\n", candidate, source, target, verdict, r.Fraction)
	fmt.Fprintln(p.out, p.st.muted.Render(fmt.Sprintf("  distance %s, %s of %s shortest paths pass through",
		distance, humanize.FtoaWithDigits(r.Through, 0), humanize.FtoaWithDigits(r.Total, 0))))
	return nil
}

// seriesRow is the JSON shape of one simulated day.
type seriesRow struct {
	Day        int     `json:"day"`
	Cumulative float64 `json:"cumulative"`
	New        float64 `json:"new"`
}

// Series prints a cumulative projection, sampling every step days and
// always including the last day.
func (p *Printer) Series(series []float64, step int) error {
	if step < 1 {
		step = 1
	}
	var rows []seriesRow
	for d := 1; d < len(series); d++ {
		if d%step != 0 && d != len(series)-1 {
			continue
		}
		rows = append(rows, seriesRow{Day: d, Cumulative: series[d], New: series[d] - series[d-1]})
	}
	if p.json {
		if rows == nil {
			rows = []seriesRow{}
		}
		return p.JSON(rows)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{humanize.Comma(int64(r.Day)), formatExpected(r.Cumulative), formatExpected(r.New)}
	}
	p.printTable([]string{"Day", "Cumulative", "New"}, out, false)
	return nil
}

// BonusResult prints the outcome of a bonus search.
func (p *Printer) BonusResult(res growth.BonusSearch) error {
	if p.json {
		return p.JSON(res)
	}
	return p.KeyValue(
		[2]string{"bonus", humanize.Comma(res.Bonus)},
		[2]string{"probability", humanize.FtoaWithDigits(res.Probability, 6)},
		[2]string{"target day", strconv.Itoa(res.Day)},
		[2]string{"evaluations", strconv.Itoa(res.Evaluations)},
	)
}

// formatExpected renders an expectation with thousands separators and
// two decimals, or scientific notation once it no longer fits an int64.
func formatExpected(v float64) string {
	if v >= 1e15 || v <= -1e15 {
		return strings.ToLower(strconv.FormatFloat(v, 'e', 3, 64))
	}
	return humanize.CommafWithDigits(v, 2)
}

// ScenarioReport prints one row per scenario step and a summary line.
func (p *Printer) ScenarioReport(rep scenario.Report) error {
	if p.json {
		if rep.Outcomes == nil {
			rep.Outcomes = []scenario.Outcome{}
		}
		return p.JSON(rep)
	}
	if rep.Scenario != "" {
		p.Title("Scenario " + rep.Scenario)
	}
	rows := make([][]string, len(rep.Outcomes))
	for i, o := range rep.Outcomes {
		status, detail := p.st.ok.Render(iconOK), o.Detail
		if !o.OK {
			status, detail = p.st.fail.Render(iconFail), o.Error
		}
		rows[i] = []string{strconv.Itoa(i + 1), o.Kind, o.Subject, status, detail}
	}
	p.printTable([]string{"#", "Step", "Subject", "", "Result"}, rows, false)
	summary := fmt.Sprintf("%d steps, %d failed, %d members in %d trees (%s)",
		len(rep.Outcomes), rep.Failures, rep.Members, rep.Trees, rep.Elapsed.Round(time.Microsecond))
	fmt.Fprintln(p.out, p.st.muted.Render(summary))
	return nil
}
