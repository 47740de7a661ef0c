package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lineage/internal/referral"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through a small referral program in memory",
	Long: `Registers four members, links krish→hj, bob→charlie and krish→bob, then
prints krish's referrals, descendant counts and two shortest-path checks.
Nothing is written to the journal.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error { return a.demo() })
}

// demo runs against a private forest so the journal is untouched.
func (a *app) demo() error {
	f := referral.NewForest(referral.WithLogger(a.log))
	for _, addr := range []string{"krish@gmail.com", "bob@gmail.com", "charlie@gmail.com", "hj@gmail.com"} {
		if _, _, err := f.Register(addr); err != nil {
			return err
		}
	}
	for _, r := range [][2]string{
		{"krish@gmail.com", "hj@gmail.com"},
		{"bob@gmail.com", "charlie@gmail.com"},
		{"krish@gmail.com", "bob@gmail.com"},
	} {
		if err := f.CreateReferral(r[0], r[1]); err != nil {
			return err
		}
	}

	if a.out.JSONMode() {
		return a.demoJSON(f)
	}

	a.out.Title("Referral tree")
	if err := a.out.Tree(f, "krish@gmail.com", 0); err != nil {
		return err
	}
	a.out.Title("krish@gmail.com referred: " + strings.Join(f.DirectReferrals("krish@gmail.com"), " "))

	var pairs [][2]string
	for _, who := range []string{"krish", "bob", "charlie"} {
		n, err := f.DescendantCount(who + "@gmail.com")
		if err != nil {
			return err
		}
		pairs = append(pairs, [2]string{who + " total referrals", fmt.Sprint(n)})
	}
	if err := a.out.KeyValue(pairs...); err != nil {
		return err
	}

	for _, candidate := range []string{"bob@gmail.com", "hj@gmail.com"} {
		res, err := f.IsOnShortestPath("krish@gmail.com", "charlie@gmail.com", candidate)
		if err != nil {
			return err
		}
		if err := a.out.Path("krish@gmail.com", "charlie@gmail.com", candidate, res); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) demoJSON(f *referral.Forest) error {
	counts := make(map[string]int)
	for _, addr := range f.Addresses() {
		n, err := f.DescendantCount(addr)
		if err != nil {
			return err
		}
		counts[addr] = n
	}
	bob, err := f.IsOnShortestPath("krish@gmail.com", "charlie@gmail.com", "bob@gmail.com")
	if err != nil {
		return err
	}
	hj, err := f.IsOnShortestPath("krish@gmail.com", "charlie@gmail.com", "hj@gmail.com")
	if err != nil {
		return err
	}
	return a.out.JSON(map[string]any{
		"referrals": f.DirectReferrals("krish@gmail.com"),
		"counts":    counts,
		"paths": map[string]any{
			"bob": map[string]any{"on_path": bob.OnPath, "fraction": bob.Fraction},
			"hj":  map[string]any{"on_path": hj.OnPath, "fraction": hj.Fraction},
		},
	})
}
