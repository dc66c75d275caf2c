// Command auctionctl is a CLI for the auction house API.
//
// # Usage
//
//	auctionctl -server=http://localhost:8080 -as=alice create -asset=0 -registry=http://localhost:8081 -min-price=1 -start=+1m -duration=720h
//	auctionctl -server=http://localhost:8080 -as=bob bid -id=0 -amount=10
//	auctionctl -server=http://localhost:8080 settle -id=0
//	auctionctl -server=http://localhost:8080 get -id=0
//	auctionctl -server=http://localhost:8080 list
//	auctionctl -server=http://localhost:8080 balance -party=alice
//	auctionctl -server=http://localhost:8080 -as=alice withdraw -amount=10
//	auctionctl -server=http://localhost:8080 watch
//
// Start times accept RFC 3339 timestamps or "+<duration>" relative to now.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/BorislavEnchev/AuctionHouse/auction"
	"github.com/BorislavEnchev/AuctionHouse/client"
)

func main() {
	var (
		server = flag.String("server", "http://localhost:8080", "Auction house base URL")
		caller = flag.String("as", "", "Participant identity for the call")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	c := client.New(*server)
	ctx := context.Background()

	var err error
	switch args[0] {
	case "create":
		err = cmdCreate(ctx, c, *caller, args[1:])
	case "bid":
		err = cmdBid(ctx, c, *caller, args[1:])
	case "settle":
		err = cmdSettle(ctx, c, *caller, args[1:])
	case "get":
		err = cmdGet(ctx, c, args[1:])
	case "list":
		err = cmdList(ctx, c)
	case "balance":
		err = cmdBalance(ctx, c, args[1:])
	case "withdraw":
		err = cmdWithdraw(ctx, c, *caller, args[1:])
	case "watch":
		err = cmdWatch(*server)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: auctionctl [-server=URL] [-as=identity] <create|bid|settle|get|list|balance|withdraw|watch> [options]")
}

func cmdCreate(ctx context.Context, c *client.Client, caller string, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	var (
		assetID   = fs.Uint64("asset", 0, "Asset id")
		registry  = fs.String("registry", "", "Registry address")
		minPrice  = fs.String("min-price", "", "Minimum price")
		start     = fs.String("start", "+1m", "Start time (RFC 3339 or +duration)")
		duration  = fs.Duration("duration", 30*24*time.Hour, "Auction duration")
		increment = fs.String("increment", "1", "Minimum bid increment")
		window    = fs.Duration("window", 5*time.Minute, "Anti-snipe extension window")
		increase  = fs.Duration("increase", 5*time.Minute, "Anti-snipe extension increase")
	)
	fs.Parse(args)

	if caller == "" {
		return fmt.Errorf("-as is required for create")
	}

	startTime, err := parseTime(*start)
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(*minPrice)
	if err != nil {
		return fmt.Errorf("invalid min price: %w", err)
	}
	inc, err := decimal.NewFromString(*increment)
	if err != nil {
		return fmt.Errorf("invalid increment: %w", err)
	}

	id, err := c.CreateAuction(ctx, caller, auction.Params{
		AssetID:               *assetID,
		Registry:              *registry,
		MinPrice:              price,
		StartTime:             startTime,
		EndTime:               startTime.Add(*duration),
		MinBidIncrement:       inc,
		TimeExtensionWindow:   *window,
		TimeExtensionIncrease: *increase,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Auction created with id %d\n", id)
	return nil
}

func cmdBid(ctx context.Context, c *client.Client, caller string, args []string) error {
	fs := flag.NewFlagSet("bid", flag.ExitOnError)
	var (
		id     = fs.Uint64("id", 0, "Auction id")
		amount = fs.String("amount", "", "Bid amount")
	)
	fs.Parse(args)

	if caller == "" {
		return fmt.Errorf("-as is required for bid")
	}
	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	a, err := c.PlaceBid(ctx, caller, *id, value)
	if err != nil {
		return err
	}
	return printJSON(a)
}

func cmdSettle(ctx context.Context, c *client.Client, caller string, args []string) error {
	fs := flag.NewFlagSet("settle", flag.ExitOnError)
	id := fs.Uint64("id", 0, "Auction id")
	fs.Parse(args)

	a, err := c.Settle(ctx, caller, *id)
	if err != nil {
		return err
	}

	if a.HighestBidder == auction.NoBidder {
		fmt.Println("Auction settled with no bids, asset returned to seller")
	} else {
		fmt.Printf("Auction settled: asset to %s, %s to seller\n", a.HighestBidder, a.HighestBid)
	}
	return printJSON(a)
}

func cmdGet(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	id := fs.Uint64("id", 0, "Auction id")
	fs.Parse(args)

	a, err := c.GetAuction(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(a)
}

func cmdList(ctx context.Context, c *client.Client) error {
	auctions, err := c.ListAuctions(ctx)
	if err != nil {
		return err
	}
	return printJSON(auctions)
}

func cmdBalance(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	party := fs.String("party", "", "Participant identity")
	fs.Parse(args)

	balance, err := c.Balance(ctx, *party)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", *party, balance)
	return nil
}

func cmdWithdraw(ctx context.Context, c *client.Client, caller string, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
	amount := fs.String("amount", "", "Amount to withdraw")
	fs.Parse(args)

	if caller == "" {
		return fmt.Errorf("-as is required for withdraw")
	}
	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	remaining, err := c.Withdraw(ctx, caller, value)
	if err != nil {
		return err
	}
	fmt.Printf("Withdrew %s, remaining balance %s\n", value, remaining)
	return nil
}

func cmdWatch(serverURL string) error {
	wsURL := strings.Replace(serverURL, "http", "ws", 1) + "/events"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	defer conn.Close()

	fmt.Printf("Watching events on %s\n", wsURL)
	for {
		var ev auction.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if err := printJSON(ev); err != nil {
			return err
		}
	}
}

func parseTime(s string) (time.Time, error) {
	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative time %q: %w", s, err)
		}
		return time.Now().Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
