package cmd

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lineage/internal/referral"
	"github.com/papapumpkin/lineage/internal/telemetry"
)

var registerCmd = &cobra.Command{
	Use:   "register <address>...",
	Short: "Register members by address",
	Long: `Registers each address and prints its identity token. Registering an
existing address is not an error; the existing token is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegister,
}

var referCmd = &cobra.Command{
	Use:   "refer <referrer> <candidate>",
	Short: "Record that referrer brought in candidate",
	Long: `Creates a referral edge. The candidate must not already have a referrer,
may not refer itself, and may not be an ancestor of the referrer.`,
	Args: cobra.ExactArgs(2),
	RunE: runRefer,
}

var countCmd = &cobra.Command{
	Use:   "count <address>",
	Short: "Print the number of members a member brought in, directly or not",
	Args:  cobra.ExactArgs(1),
	RunE:  runCount,
}

var childrenCmd = &cobra.Command{
	Use:   "children <address>",
	Short: "List a member's direct referrals in creation order",
	Args:  cobra.ExactArgs(1),
	RunE:  runChildren,
}

var treeCmd = &cobra.Command{
	Use:   "tree <address>",
	Short: "Draw the referral tree under a member",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().Int("depth", 0, "levels to expand below the root (0 = all)")

	rootCmd.AddCommand(registerCmd, referCmd, countCmd, childrenCmd, treeCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error { return a.registerAll(args) })
}

func (a *app) registerAll(addresses []string) error {
	type row struct {
		Address string `json:"address"`
		ID      string `json:"id"`
		Created bool   `json:"created"`
	}
	var rows []row
	for _, addr := range addresses {
		id, created, err := a.register(addr)
		if err != nil {
			return err
		}
		rows = append(rows, row{Address: addr, ID: id.String(), Created: created})
		if a.out.JSONMode() {
			continue
		}
		if created {
			a.out.Success("registered %s as %s", addr, id)
		} else {
			a.out.Warn("already registered: %s (%s)", addr, id)
		}
	}
	if a.out.JSONMode() {
		return a.out.JSON(rows)
	}
	return nil
}

func runRefer(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error { return a.referOne(args[0], args[1]) })
}

func (a *app) referOne(referrer, candidate string) error {
	if err := a.refer(referrer, candidate); err != nil {
		return err
	}
	if a.out.JSONMode() {
		return a.out.JSON(map[string]string{"referrer": referrer, "candidate": candidate})
	}
	a.out.Success("%s referred %s", referrer, candidate)
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error { return a.count(args[0]) })
}

func (a *app) count(address string) error {
	f, err := a.loadForest()
	if err != nil {
		return err
	}
	n, err := f.DescendantCount(address)
	if err != nil {
		return err
	}
	_ = a.tel.Record(telemetry.KindQuery, address, map[string]any{"query": "count", "result": n})
	if a.out.JSONMode() {
		return a.out.JSON(map[string]any{"address": address, "count": n})
	}
	return a.out.KeyValue([2]string{address, strconv.Itoa(n)})
}

func runChildren(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error { return a.children(args[0]) })
}

func (a *app) children(address string) error {
	f, err := a.loadForest()
	if err != nil {
		return err
	}
	// Unknown addresses have no referrals; say so instead of printing an
	// empty list that looks like a known member.
	if _, err := f.Resolve(address); errors.Is(err, referral.ErrUnknownIdentity) {
		a.out.Warn("%s is not registered", address)
	}
	kids := f.DirectReferrals(address)
	_ = a.tel.Record(telemetry.KindQuery, address, map[string]any{"query": "children", "result": kids})
	return a.out.Lines(kids)
}

func runTree(cmd *cobra.Command, args []string) error {
	depth, _ := cmd.Flags().GetInt("depth")
	return withApp(cmd, func(a *app) error {
		f, err := a.loadForest()
		if err != nil {
			return err
		}
		return a.out.Tree(f, args[0], depth)
	})
}
