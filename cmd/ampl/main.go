// Command ampl issues, distributes, and verifies content attestations.
//
// Each operation is an explicit subcommand with its own flags:
//
//	ampl attest <file>...
//	ampl issue-claim [--id ID | --uuid] <file>...
//	ampl validate-claim <claim-id> <file>...
//	ampl retrieve [--out DIR] <claim-id>
//	ampl distribute [--transport NAME]... <file>...
//	ampl fetch [--out DIR] <uri>
//	ampl identity show|new
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/amplius/ampl"
	"github.com/amplius/ampl/fileset"
)

const usage = `Usage: ampl [--config PATH] [--verbose] <command> [flags] [args]

Commands:
  attest          distribute files through every transport and issue a claim
  issue-claim     issue a claim over files without distributing them
  validate-claim  check local files against a stored claim
  retrieve        fetch a claim's files from its recorded locations
  distribute      push files through transports without issuing a claim
  fetch           fetch files directly from a transport URI
  identity        show or rotate the signing identity

Run "ampl <command> --help" for command flags.`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ampl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := pflag.NewFlagSet("ampl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	configPath := global.String("config", "", "path to config file")
	verbose := global.Bool("verbose", false, "log to stderr")
	global.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return errors.New("command required")
	}

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	client, err := cfg.newClient(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, commandArgs := rest[0], rest[1:]
	switch command {
	case "attest":
		return runAttest(ctx, client, commandArgs)
	case "issue-claim":
		return runIssueClaim(ctx, client, commandArgs)
	case "validate-claim":
		return runValidateClaim(ctx, client, commandArgs)
	case "retrieve":
		return runRetrieve(ctx, client, commandArgs)
	case "distribute":
		return runDistribute(ctx, client, commandArgs)
	case "fetch":
		return runFetch(ctx, client, commandArgs)
	case "identity":
		return runIdentity(ctx, client, commandArgs)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runAttest(ctx context.Context, client *ampl.Client, args []string) error {
	flags := pflag.NewFlagSet("attest", pflag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("attest: at least one file required")
	}

	files, err := fileset.FromPaths(flags.Args()...)
	if err != nil {
		return err
	}
	result, err := client.Attest(ctx, files)
	if err != nil {
		return err
	}

	fmt.Printf("claim %s\n", result.ClaimID)
	fmt.Printf("fingerprint %s\n", result.Fingerprint.Hex())
	fmt.Printf("issuer %s\n", result.Issuer)
	failed := 0
	for _, o := range result.Outcomes {
		if o.Err != nil {
			failed++
			fmt.Printf("%s: failed: %v\n", o.Transport, o.Err)
			continue
		}
		fmt.Printf("%s: %s\n", o.Transport, o.Location)
	}
	if failed == len(result.Outcomes) && failed > 0 {
		return errors.New("attest: claim issued but no transport succeeded")
	}
	return nil
}

func runIssueClaim(ctx context.Context, client *ampl.Client, args []string) error {
	flags := pflag.NewFlagSet("issue-claim", pflag.ContinueOnError)
	id := flags.String("id", "", "claim identifier (32 to 64 characters)")
	random := flags.Bool("uuid", false, "use a random UUID identifier")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *id != "" && *random {
		return errors.New("issue-claim: --id and --uuid are mutually exclusive")
	}
	if flags.NArg() == 0 {
		return errors.New("issue-claim: at least one file required")
	}

	policy := *id
	if *random {
		policy = ampl.UUIDPolicy
	}

	files, err := fileset.FromPaths(flags.Args()...)
	if err != nil {
		return err
	}
	claimID, err := client.IssueClaim(ctx, policy, files)
	if err != nil {
		return err
	}
	fmt.Println(claimID)
	return nil
}

func runValidateClaim(ctx context.Context, client *ampl.Client, args []string) error {
	flags := pflag.NewFlagSet("validate-claim", pflag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 2 {
		return errors.New("validate-claim: claim ID and at least one file required")
	}

	claimID := flags.Arg(0)
	files, err := fileset.FromPaths(flags.Args()[1:]...)
	if err != nil {
		return err
	}
	if err := client.ValidateClaim(ctx, claimID, files); err != nil {
		return err
	}
	fmt.Printf("claim %s: valid (%d files)\n", claimID, len(files))
	return nil
}

func runRetrieve(ctx context.Context, client *ampl.Client, args []string) error {
	flags := pflag.NewFlagSet("retrieve", pflag.ContinueOnError)
	out := flags.String("out", ".", "directory to write the files into")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("retrieve: exactly one claim ID required")
	}

	files, err := client.Retrieve(ctx, flags.Arg(0))
	if err != nil {
		return err
	}
	if err := files.WriteDir(*out); err != nil {
		return err
	}
	for _, name := range files.Names() {
		fmt.Println(name)
	}
	return nil
}

func runDistribute(ctx context.Context, client *ampl.Client, args []string) error {
	flags := pflag.NewFlagSet("distribute", pflag.ContinueOnError)
	selectors := flags.StringArray("transport", nil, "transport to use (repeatable; default all)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("distribute: at least one file required")
	}

	files, err := fileset.FromPaths(flags.Args()...)
	if err != nil {
		return err
	}
	outcomes, err := client.Distribute(ctx, files, *selectors...)
	if err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Printf("%s: failed: %v\n", o.Transport, o.Err)
			continue
		}
		fmt.Printf("%s: %s\n", o.Transport, o.Location)
	}
	if failed > 0 {
		return fmt.Errorf("distribute: %d of %d transports failed", failed, len(outcomes))
	}
	return nil
}

func runFetch(ctx context.Context, client *ampl.Client, args []string) error {
	flags := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
	out := flags.String("out", ".", "directory to write the files into")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("fetch: exactly one URI required")
	}

	files, err := client.Fetch(ctx, flags.Arg(0))
	if err != nil {
		return err
	}
	if err := files.WriteDir(*out); err != nil {
		return err
	}
	for _, name := range files.Names() {
		fmt.Println(name)
	}
	return nil
}

func runIdentity(ctx context.Context, client *ampl.Client, args []string) error {
	flags := pflag.NewFlagSet("identity", pflag.ContinueOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("identity: subcommand required: show or new")
	}

	switch flags.Arg(0) {
	case "show":
		ident, err := client.Identity(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ident.Address())
		return nil
	case "new":
		ident, err := client.NewIdentity(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ident.Address())
		return nil
	default:
		return fmt.Errorf("identity: unknown subcommand %q", flags.Arg(0))
	}
}
