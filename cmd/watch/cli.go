package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"cryptonite/internal/alerts"
	"cryptonite/internal/models"
	"cryptonite/internal/notify"

	"github.com/shopspring/decimal"
)

var errUsage = errors.New("bad usage, run with -h for help")

type cli struct {
	api       *apiClient
	evaluator alerts.Evaluator
	manager   *notify.Manager
	out       io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "coins":
		return c.coins(ctx)
	case "list":
		return c.pass(ctx, false)
	case "reload":
		return c.pass(ctx, true)
	case "view", "dismiss":
		if len(rest) != 1 {
			return errUsage
		}
		return c.transition(ctx, cmd, rest[0])
	case "reset":
		fmt.Fprintln(c.out, "Notifications cleared.")
		return c.pass(ctx, true)
	case "follow":
		return c.follow(ctx)
	default:
		return errUsage
	}
}

func (c *cli) coins(ctx context.Context) error {
	coins, err := c.api.coins(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tPRICE\tMARKET CAP\t24H")
	for _, coin := range coins {
		rank := "-"
		if coin.MarketCapRank != nil {
			rank = fmt.Sprint(*coin.MarketCapRank)
		}
		fmt.Fprintf(tw, "%s\t%s\t$%s\t$%s\t%s%%\n",
			rank,
			coin.Name,
			decimal.NewFromFloat(coin.CurrentPrice).StringFixed(2),
			decimal.NewFromFloat(coin.MarketCap).StringFixed(0),
			decimal.NewFromFloat(coin.PriceChangePercentage24h).StringFixed(2),
		)
	}
	return tw.Flush()
}

func (c *cli) evaluate(ctx context.Context) ([]models.AlertRecord, error) {
	coins, err := c.api.coins(ctx)
	if err != nil {
		return nil, err
	}
	return c.evaluator.Records(coins, time.Now().UTC()), nil
}

func (c *cli) pass(ctx context.Context, reload bool) error {
	records, err := c.evaluate(ctx)
	if err != nil {
		return err
	}
	if reload {
		_, err = c.manager.Reload(ctx, records)
	} else {
		_, err = c.manager.Apply(ctx, records, false)
	}
	if err != nil {
		return err
	}
	c.print()
	return nil
}

func (c *cli) transition(ctx context.Context, cmd, coinID string) error {
	var err error
	if cmd == "view" {
		err = c.manager.View(ctx, coinID)
	} else {
		err = c.manager.Dismiss(ctx, coinID)
	}
	switch {
	case errors.Is(err, notify.ErrNotActive):
		return fmt.Errorf("%s has no active notification", coinID)
	case errors.Is(err, notify.ErrNotViewed):
		return fmt.Errorf("view %s before dismissing it", coinID)
	case err != nil:
		return err
	}
	c.print()
	return nil
}

func (c *cli) print() {
	active := c.manager.Active()
	if len(active) == 0 {
		fmt.Fprintln(c.out, "No notifications.")
		return
	}
	if c.manager.HasUnread() {
		fmt.Fprintln(c.out, "● unread notifications")
	}
	for _, n := range active {
		marker := "*"
		if n.Viewed {
			marker = " "
		}
		fmt.Fprintf(c.out, "%s %s (%s)\n", marker, n.Name, n.CoinID)
		for _, m := range n.Messages {
			fmt.Fprintf(c.out, "    %s\n", m)
		}
	}
}

// follow prints stream events and reruns the alert pass after each refresh.
func (c *cli) follow(ctx context.Context) error {
	conn, err := c.api.dialStream(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	fmt.Fprintln(c.out, "Following market events, Ctrl-C to stop.")
	for {
		var ev models.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream closed: %w", err)
		}
		c.handleEvent(ctx, ev)
	}
}

func (c *cli) handleEvent(ctx context.Context, ev models.Event) {
	switch ev.Type {
	case models.EventRefresh:
		fmt.Fprintf(c.out, "[%s] market refreshed, generation %d, %d coins\n",
			ev.Timestamp.Local().Format(time.Kitchen), ev.Generation, ev.Coins)
		records, err := c.evaluate(ctx)
		if err != nil {
			fmt.Fprintln(c.out, "  alert pass failed:", err)
			return
		}
		surfaced, err := c.manager.Apply(ctx, records, false)
		if err != nil {
			fmt.Fprintln(c.out, "  alert pass failed:", err)
			return
		}
		if len(surfaced) > 0 {
			fmt.Fprintf(c.out, "  new notifications: %s\n", strings.Join(surfaced, ", "))
		}
	case models.EventAlert:
		if ev.Alert == nil {
			return
		}
		fmt.Fprintf(c.out, "[%s] %s\n", ev.Timestamp.Local().Format(time.Kitchen), ev.Alert.CryptoName)
		for _, m := range ev.Alert.Messages {
			fmt.Fprintf(c.out, "    %s\n", m)
		}
	}
}
