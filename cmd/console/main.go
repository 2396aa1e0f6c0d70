package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/defistate/position-ledger-go/auth"
	"github.com/defistate/position-ledger-go/coordinator"
	"github.com/defistate/position-ledger-go/feemath"
	"github.com/defistate/position-ledger-go/ledger"
	"github.com/defistate/position-ledger-go/poolregistry"
	"github.com/defistate/position-ledger-go/poolsim"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"

	defaultTickLower = int32(-60)
	defaultTickUpper = int32(60)
	deadlineSlack    = uint64(60)
	tokenDecimals    = int32(6)
)

// header prints a styled section header
func header(title string) {
	fmt.Println("\n" + Bold + Cyan + ":: " + title + " ::" + Reset)
}

// demo bundles the coordinator with the simulated collaborators so console
// commands can poke both sides.
type demo struct {
	coord   *coordinator.Coordinator
	pool    *poolsim.Pool
	custody *poolsim.Custody
	book    *poolsim.OwnershipBook
	clock   *poolsim.Clock
	ledger  *ledger.PositionLedger
	wallet  common.Address
	poolKey poolregistry.PoolKey
}

func newDemo(logger *slog.Logger) (*demo, error) {
	d := &demo{
		pool:    poolsim.NewPool(),
		custody: poolsim.NewCustody(),
		book:    poolsim.NewOwnershipBook(),
		clock:   poolsim.NewClock(uint64(time.Now().Unix())),
		ledger:  ledger.NewPositionLedger(),
		wallet:  common.HexToAddress("0x0000000000000000000000000000000000c0ffee"),
		poolKey: poolregistry.PoolKey{
			Token0: common.HexToAddress("0x000000000000000000000000000000000000000a"),
			Token1: common.HexToAddress("0x000000000000000000000000000000000000000b"),
			Fee:    3000,
		},
	}

	pools := poolregistry.NewPoolRegistry()
	guard, err := auth.NewGuard(d.book, d.ledger)
	if err != nil {
		return nil, err
	}

	d.coord, err = coordinator.New(&coordinator.Config{
		Pool:     d.pool,
		Custody:  d.custody,
		Minter:   d.book,
		Clock:    d.clock,
		Guard:    guard,
		Ledger:   d.ledger,
		Pools:    pools,
		Logger:   logger.With("component", "coordinator"),
		Registry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *demo) now() uint64 {
	now := uint64(time.Now().Unix())
	d.clock.Set(now)
	return now
}

func main() {
	logFile, err := os.OpenFile("console.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("Failed to open log file: %v", err))
	}
	defer logFile.Close()

	rootLogger := slog.New(slog.NewJSONHandler(logFile, nil))

	d, err := newDemo(rootLogger)
	if err != nil {
		fmt.Println(Red + "Failed to start demo: " + err.Error() + Reset)
		os.Exit(1)
	}

	fmt.Println(Green + "Starting Position Ledger Console..." + Reset)
	fmt.Println("Logs are being written to 'console.log'")

	reader := bufio.NewReader(os.Stdin)
	for {
		printMenu()

		fmt.Print(Bold + "Enter selection: " + Reset)
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)

		if !handleCommand(d, input, reader) {
			return
		}

		fmt.Println("\n" + Gray + "[Press Enter to continue]" + Reset)
		reader.ReadString('\n')
	}
}

func printMenu() {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(Bold + "POSITION LEDGER CONSOLE" + Reset + Gray + " | v0.1.0" + Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %s1.%s Mint Position\n", Cyan, Reset)
	fmt.Printf(" %s2.%s Increase Liquidity\n", Cyan, Reset)
	fmt.Printf(" %s3.%s Decrease Liquidity\n", Cyan, Reset)
	fmt.Printf(" %s4.%s Collect Fees\n", Cyan, Reset)
	fmt.Printf(" %s5.%s Burn Position\n", Cyan, Reset)
	fmt.Printf(" %s6.%s Accrue Fees %s(simulated trading)%s\n", Cyan, Reset, Gray, Reset)
	fmt.Printf(" %s7.%s List Positions\n", Cyan, Reset)
	fmt.Printf(" %s8.%s Pool + Wallet Summary\n", Cyan, Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %sq.%s Quit\n", Red, Reset)
	fmt.Println("")
}

func handleCommand(d *demo, input string, reader *bufio.Reader) bool {
	switch input {
	case "1":
		mintPosition(d, reader)
	case "2":
		increaseLiquidity(d, reader)
	case "3":
		decreaseLiquidity(d, reader)
	case "4":
		collectFees(d, reader)
	case "5":
		burnPosition(d, reader)
	case "6":
		accrueFees(d, reader)
	case "7":
		listPositions(d)
	case "8":
		printSummary(d)
	case "q":
		fmt.Println(Yellow + "Exiting..." + Reset)
		return false
	default:
		fmt.Println(Red + "Unknown command." + Reset)
	}
	return true
}

// --- COMMAND HANDLERS ---

func mintPosition(d *demo, reader *bufio.Reader) {
	amount0 := readUint(reader, "Desired amount of token0: ")
	amount1 := readUint(reader, "Desired amount of token1: ")

	res, err := d.coord.Mint(coordinator.MintParams{
		PoolKey:        d.poolKey,
		TickLower:      defaultTickLower,
		TickUpper:      defaultTickUpper,
		Amount0Desired: uint256.NewInt(amount0),
		Amount1Desired: uint256.NewInt(amount1),
		Recipient:      d.wallet,
		Deadline:       d.now() + deadlineSlack,
	})
	if err != nil {
		fmt.Println(Red + "[ERROR] " + err.Error() + Reset)
		return
	}

	header("POSITION MINTED")
	fmt.Printf("  %sPosition ID:%s %d\n", Gray, Reset, res.PositionID)
	fmt.Printf("  %sLiquidity:%s   %s\n", Gray, Reset, res.Liquidity)
	fmt.Printf("  %sTaken:%s       %s / %s\n", Gray, Reset, res.Amount0, res.Amount1)
}

func increaseLiquidity(d *demo, reader *bufio.Reader) {
	id := readUint(reader, "Position ID: ")
	amount0 := readUint(reader, "Desired amount of token0: ")
	amount1 := readUint(reader, "Desired amount of token1: ")

	res, err := d.coord.IncreaseLiquidity(d.wallet, coordinator.IncreaseParams{
		PositionID:     id,
		Amount0Desired: uint256.NewInt(amount0),
		Amount1Desired: uint256.NewInt(amount1),
		Deadline:       d.now() + deadlineSlack,
	})
	if err != nil {
		fmt.Println(Red + "[ERROR] " + err.Error() + Reset)
		return
	}

	fmt.Printf("\n%sAdded %s liquidity (taken %s / %s)%s\n", Green, res.Liquidity, res.Amount0, res.Amount1, Reset)
}

func decreaseLiquidity(d *demo, reader *bufio.Reader) {
	id := readUint(reader, "Position ID: ")
	liquidity := readUint(reader, "Liquidity to remove: ")

	res, err := d.coord.DecreaseLiquidity(d.wallet, coordinator.DecreaseParams{
		PositionID: id,
		Liquidity:  uint256.NewInt(liquidity),
		Deadline:   d.now() + deadlineSlack,
	})
	if err != nil {
		fmt.Println(Red + "[ERROR] " + err.Error() + Reset)
		return
	}

	fmt.Printf("\n%sReleased %s / %s into owed balances (collect to withdraw)%s\n", Green, res.Amount0, res.Amount1, Reset)
}

func collectFees(d *demo, reader *bufio.Reader) {
	id := readUint(reader, "Position ID: ")
	d.now()

	res, err := d.coord.Collect(d.wallet, coordinator.CollectParams{
		PositionID: id,
		Recipient:  d.wallet,
		Amount0Max: feemath.MaxUint128,
		Amount1Max: feemath.MaxUint128,
	})
	if err != nil {
		fmt.Println(Red + "[ERROR] " + err.Error() + Reset)
		return
	}

	fmt.Printf("\n%sCollected %s token0 and %s token1%s\n", Green, res.Amount0, res.Amount1, Reset)
}

func burnPosition(d *demo, reader *bufio.Reader) {
	id := readUint(reader, "Position ID: ")
	d.now()

	if err := d.coord.Burn(d.wallet, id); err != nil {
		fmt.Println(Red + "[ERROR] " + err.Error() + Reset)
		return
	}
	fmt.Printf("\n%sPosition %d burned; its identifier is retired forever.%s\n", Green, id, Reset)
}

func accrueFees(d *demo, reader *bufio.Reader) {
	fmt.Print(Bold + "Fee growth per unit of liquidity, token0 (e.g. 0.5): " + Reset)
	delta0, ok := readGrowth(reader)
	if !ok {
		return
	}
	fmt.Print(Bold + "Fee growth per unit of liquidity, token1: " + Reset)
	delta1, ok := readGrowth(reader)
	if !ok {
		return
	}

	d.pool.AdvanceFees(d.poolKey, defaultTickLower, defaultTickUpper, delta0, delta1)
	fmt.Println(Green + "Fee growth counters advanced." + Reset)
}

func listPositions(d *demo) {
	view := d.ledger.View()
	if len(view.Positions) == 0 {
		fmt.Println(Yellow + "[INFO] No live positions." + Reset)
		return
	}

	header("POSITIONS")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "ID\tPOOL\tRANGE\tLIQUIDITY\tOWED0\tOWED1\tNONCE\t")
	fmt.Fprintln(w, "--\t----\t-----\t---------\t-----\t-----\t-----\t")

	for _, p := range view.Positions {
		fmt.Fprintf(w, "%d\t%d\t[%d, %d]\t%s\t%s\t%s\t%d\t\n",
			p.ID, p.PoolID, p.TickLower, p.TickUpper,
			p.Liquidity, p.TokensOwed0, p.TokensOwed1, p.Nonce)
	}
	w.Flush()

	if len(view.Retired) > 0 {
		retired := make([]string, 0, len(view.Retired))
		for _, id := range view.Retired {
			retired = append(retired, strconv.FormatUint(id, 10))
		}
		fmt.Printf("\n%sRetired IDs: %s%s\n", Gray, strings.Join(retired, ", "), Reset)
	}
}

func printSummary(d *demo) {
	header("POOL")
	fg0, fg1, _ := d.pool.FeeGrowthInside(d.poolKey, defaultTickLower, defaultTickUpper)
	fmt.Printf("  %sRange liquidity:%s   %s\n", Gray, Reset, d.pool.RangeLiquidity(d.poolKey, defaultTickLower, defaultTickUpper))
	fmt.Printf("  %sFee growth 0/liq:%s  %s\n", Gray, Reset, feemath.Q128ToDecimal(fg0, 6))
	fmt.Printf("  %sFee growth 1/liq:%s  %s\n", Gray, Reset, feemath.Q128ToDecimal(fg1, 6))
	fmt.Printf("  %sActive ticks:%s      %d\n", Gray, Reset, d.pool.ActiveTickCount(d.poolKey))

	header("WALLET")
	fmt.Printf("  %sAddress:%s  %s\n", Gray, Reset, d.wallet)
	fmt.Printf("  %sToken0:%s   %s\n", Gray, Reset, feemath.AmountToDecimal(d.custody.Balance(d.poolKey.Token0, d.wallet), tokenDecimals))
	fmt.Printf("  %sToken1:%s   %s\n", Gray, Reset, feemath.AmountToDecimal(d.custody.Balance(d.poolKey.Token1, d.wallet), tokenDecimals))
}

// --- HELPERS ---

func readUint(reader *bufio.Reader, prompt string) uint64 {
	fmt.Print(Bold + prompt + Reset)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	n, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		fmt.Println(Red + "Invalid number, using 0." + Reset)
		return 0
	}
	return n
}

// readGrowth parses a decimal tokens-per-liquidity amount and scales it into
// Q128.128 fixed point.
func readGrowth(reader *bufio.Reader) (*uint256.Int, bool) {
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	dec, err := decimal.NewFromString(input)
	if err != nil || dec.IsNegative() {
		fmt.Println(Red + "Invalid growth amount." + Reset)
		return nil, false
	}

	scaled := dec.Mul(decimal.NewFromBigInt(feemath.Q128.ToBig(), 0))
	delta, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		fmt.Println(Red + "Growth amount too large." + Reset)
		return nil, false
	}
	return delta, true
}
