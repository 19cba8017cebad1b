package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"zg-client/internal/app"
	"zg-client/internal/client"
	"zg-client/internal/config"
	"zg-client/pkg/telegram"
)

const usage = `usage: client [flags] <command> [args]

commands:
  sign <telegramId> <username>   print initData signed with TELEGRAM_BOT_TOKEN
  me                             show the signed-in profile
  shop | buy <nftId>
  auctions | bid <auctionId> | cancel <auctionId> | list <nftId> <price>
  leaderboard | user <userId>
  tasks | complete <taskId>
  redeem <code>
  owned | pin <nftId> | sell <nftId> | transfer <nftId> <username>
  referrals
  nav <path>
  admin <command> [args]         see "admin" with no arguments
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	baseURL := flag.String("base", cfg.API.BaseURL, "API base URL")
	initData := flag.String("init-data", cfg.Session.InitData, "Telegram initData")
	debug := flag.Bool("debug", cfg.Logging.Debug(), "log every request")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "sign" {
		sign(cfg, args[1:])
		return
	}

	cfg.API.BaseURL = *baseURL
	cfg.Logging.Level = "info"
	if *debug {
		cfg.Logging.Level = "debug"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := app.FromConfig(cfg)
	a.Start(ctx)

	if _, err := a.Authenticate(ctx, *initData); err != nil {
		fail(err)
	}

	if err := run(ctx, a, args); err != nil {
		fail(err)
	}

	flushCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	a.Refresher.Flush(flushCtx)
	if p, ok := a.Cache.Current(); ok {
		log.Printf("balance: %d", p.Balance)
	}
}

func run(ctx context.Context, a *app.App, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "me":
		p, _ := a.Cache.Current()
		return show(p)

	case "shop":
		v := a.Shop()
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return err
		}
		return show(v.Items())

	case "buy":
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		v := a.Shop()
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return err
		}
		resp, err := v.Buy(ctx, id)
		if err != nil {
			return err
		}
		return show(resp)

	case "auctions", "bid", "cancel":
		v := a.Auctions()
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return err
		}
		if cmd == "auctions" {
			return show(v.Items())
		}
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		if cmd == "bid" {
			return v.Buy(ctx, id)
		}
		return v.Cancel(ctx, id)

	case "leaderboard":
		v := a.Leaderboard()
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return err
		}
		return show(v.Items())

	case "user":
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		v := a.Leaderboard()
		defer v.Close()
		details, err := v.Details(ctx, id)
		if err != nil {
			return err
		}
		return show(details)

	case "tasks", "complete":
		v := a.Tasks()
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return err
		}
		if cmd == "tasks" {
			return show(v.Items())
		}
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		return v.Complete(ctx, id)

	case "redeem":
		if len(rest) < 1 {
			return client.Invalid("code", "enter a code")
		}
		v := a.Home()
		defer v.Close()
		v.SetInput(rest[0])
		_, msg, err := v.Redeem(ctx)
		if err != nil {
			return err
		}
		log.Println(msg)
		return nil

	case "owned", "pin", "sell", "transfer", "list", "referrals":
		v := a.Profile()
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return err
		}
		switch cmd {
		case "owned":
			return show(v.Owned())
		case "referrals":
			refs, err := v.LoadReferrals(ctx)
			if err != nil {
				return err
			}
			return show(map[string]interface{}{"link": v.ReferralLink(), "referrals": refs})
		}
		id, err := intArg(rest, 0)
		if err != nil {
			return err
		}
		switch cmd {
		case "pin":
			return v.Pin(ctx, id)
		case "sell":
			return v.Sell(ctx, id)
		case "transfer":
			if len(rest) < 2 {
				return client.Invalid("receiverUsername", "receiverUsername is required")
			}
			return v.Transfer(ctx, id, rest[1])
		}
		price, err := intArg(rest, 1)
		if err != nil {
			return err
		}
		return v.CreateAuction(ctx, id, price)

	case "admin":
		v := a.Admin()
		defer v.Close()
		return runAdmin(ctx, v, rest)

	case "nav":
		if len(rest) < 1 {
			return client.Invalid("path", "path is required")
		}
		tab, ok := a.Nav.Navigate(rest[0])
		return show(map[string]interface{}{"mounted": tab, "active": a.Nav.Active(), "found": ok})
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func sign(cfg *config.Config, args []string) {
	if len(args) < 2 {
		log.Fatal("usage: client sign <telegramId> <username>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		log.Fatalf("invalid telegram id: %v", err)
	}
	raw, err := telegram.Sign(telegram.User{ID: id, Username: args[1]}, "", time.Now(), cfg.FakeAPI.BotToken)
	if err != nil {
		log.Fatalf("Failed to sign initData: %v", err)
	}
	fmt.Println(raw)
}

func intArg(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, client.Invalid("id", "id is required")
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, client.Invalid("id", fmt.Sprintf("%q is not a number", args[i]))
	}
	return n, nil
}

func show(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, client.Message(err))
	os.Exit(1)
}
