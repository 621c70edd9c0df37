// Command pointsctl is a command-line client for the rewardpoints API. The
// login session is kept in a token file between runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"

	"rewardpoints/internal/client"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: pointsctl [-server URL] [-session FILE] <command> [flags]

commands:
  register -username NAME -password PASS -role parent|child
  login -username NAME -password PASS
  logout
  whoami
  children
  link USERNAME
  adjust -child ID -points N [-type ADD|SUBTRACT] -description TEXT
  history [-child ID] [-page N] [-page-size N]
  show TRANSACTION_NO
  rewards
  redeem REWARD_ID
  request REWARD_ID
  requests [-status pending|approved] [-page N]
  approve REQUEST_ID
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("load .env")
	}
	log.SetLevel(log.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultSessionFile() string {
	if v := os.Getenv("POINTS_SESSION_FILE"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "rewardpoints", "session.json")
}

func defaultServer() string {
	if v := os.Getenv("POINTS_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("pointsctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	server := global.String("server", defaultServer(), "API base URL")
	sessionFile := global.String("session", defaultSessionFile(), "token file")
	if err := global.Parse(args); err != nil || global.NArg() == 0 {
		return errUsage
	}

	c := client.New(*server, client.NewFileTokenStore(*sessionFile))
	if _, err := c.Session().Restore(); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "register":
		fs := newFlagSet(cmd)
		username := fs.String("username", "", "")
		password := fs.String("password", "", "")
		role := fs.String("role", "", "")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		id, err := c.Register(ctx, *username, *password, *role)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "registered %s (%s) id=%d\n", id.Username, id.Role, id.UserID)

	case "login":
		fs := newFlagSet(cmd)
		username := fs.String("username", "", "")
		password := fs.String("password", "", "")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		id, err := c.Login(ctx, *username, *password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in as %s (%s)\n", id.Username, id.Role)

	case "logout":
		if err := c.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "logged out")

	case "whoami":
		id, ok := c.Session().Identity()
		if !ok {
			fmt.Fprintln(out, "not logged in")
			return nil
		}
		fmt.Fprintf(out, "%s (%s) id=%d\n", id.Username, id.Role, id.UserID)

	case "children":
		children, err := c.Children(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tBALANCE")
		for _, ch := range children {
			fmt.Fprintf(w, "%d\t%s\t%d\n", ch.ID, ch.Username, ch.Balance)
		}
		return w.Flush()

	case "link":
		if len(rest) != 1 {
			return errUsage
		}
		ch, err := c.LinkChild(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "linked %s id=%d balance=%d\n", ch.Username, ch.ID, ch.Balance)

	case "adjust":
		fs := newFlagSet(cmd)
		child := fs.Int64("child", 0, "")
		points := fs.Int64("points", 0, "")
		txType := fs.String("type", "", "")
		description := fs.String("description", "", "")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		res, err := c.AdjustPoints(ctx, client.AdjustInput{
			Child: *child, Points: *points, TransactionType: *txType, Description: *description,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %+d, balance %d (%s)\n", res.Transaction.TransactionType, res.Transaction.Points, res.Balance, res.Transaction.TransactionNo)

	case "history":
		fs := newFlagSet(cmd)
		child := fs.Int64("child", 0, "")
		page := fs.Int("page", 1, "")
		pageSize := fs.Int("page-size", 20, "")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		res, err := c.ListTransactions(ctx, client.ListOptions{Child: *child, Page: *page, PageSize: *pageSize})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NO\tCHILD\tTYPE\tPOINTS\tBALANCE\tDESCRIPTION")
		for _, t := range res.Items {
			fmt.Fprintf(w, "%s\t%d\t%s\t%+d\t%d\t%s\n", t.TransactionNo, t.Child, t.TransactionType, t.Points, t.BalanceAfter, t.Description)
		}
		fmt.Fprintf(w, "page %d, %d total\n", res.Page, res.Total)
		return w.Flush()

	case "show":
		if len(rest) != 1 {
			return errUsage
		}
		t, err := c.GetTransaction(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s child=%d %s %+d balance %d -> %d %q\n",
			t.TransactionNo, t.Child, t.TransactionType, t.Points, t.BalanceBefore, t.BalanceAfter, t.Description)

	case "rewards":
		rewards, err := c.ListRewards(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOST")
		for _, r := range rewards {
			fmt.Fprintf(w, "%d\t%s\t%d\n", r.ID, r.Name, r.Cost)
		}
		return w.Flush()

	case "redeem":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		res, err := c.Redeem(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "redeemed: %s, balance %d\n", res.Transaction.Description, res.Balance)

	case "request":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		req, err := c.CreateRequest(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "request %d for %s is %s\n", req.ID, req.RewardName, req.Status)

	case "requests":
		fs := newFlagSet(cmd)
		status := fs.String("status", "", "")
		page := fs.Int("page", 1, "")
		if err := fs.Parse(rest); err != nil {
			return errUsage
		}
		res, err := c.ListRequests(ctx, client.ListOptions{Status: *status, Page: *page})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCHILD\tREWARD\tCOST\tSTATUS")
		for _, r := range res.Items {
			fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\n", r.ID, r.Child, r.RewardName, r.RewardCost, r.Status)
		}
		return w.Flush()

	case "approve":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		res, err := c.ApproveRequest(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "approved request %d (%s), balance %d\n", res.Request.ID, res.Request.RewardName, res.Balance)

	default:
		return errUsage
	}
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func idArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}
