// Package main is the entry point for the cloudjack CLI.
//
// The CLI exposes every service contract against a chosen provider, so the
// same commands manage secrets, objects, queues, instances, zones, roles
// and logs on AWS and GCP alike.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
	"github.com/cloudjack/cloudjack/pkg/universal"
)

const (
	exitError    = 1
	exitNotFound = 2
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if cloudjack.IsNotFound(err) {
			os.Exit(exitNotFound)
		}
		os.Exit(exitError)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return nil
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "secret", "storage", "queue", "compute", "dns", "iam", "logs":
		return runService(ctx, cmd, cmdArgs)
	case "services":
		return cmdServices()
	case "version":
		fmt.Printf("cloudjack %s\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nRun 'cloudjack help' for usage", cmd)
	}
}

func printUsage() {
	fmt.Println(`cloudjack - One interface for AWS and GCP services

Usage:
  cloudjack <service> <operation> [arguments] [options]

Services and operations:
  secret   get|set|delete|list
           set <name> <value>, get/delete <name>

  storage  mb|rb|buckets|put|get|dl|rm|ls|sign
           put <bucket> <key> <file>, get <bucket> <key>
           sign <bucket> <key> [--method PUT] [--expires 15m]

  queue    create|delete|list|send|receive|ack
           send <queue> <body>, receive <queue> [--max 10]
           ack <queue> <receipt>

  compute  create|start|stop|terminate|get|list
           create <name> <image> <machine-type>

  dns      create-zone|delete-zone|zones|upsert|delete-record|records
           upsert <zone-id> <name> <type> <ttl> <value>...

  iam      create-role|delete-role|roles|attach|detach|policies
           attach <role> <policy>

  logs     create|delete|list|write|read
           create <group> [--retention 30]
           write <group> <message> [--severity ERROR]
           read <group> [--limit 50] [--filter <expr>]

Other commands:
  services    List supported providers and services
  version     Show version information
  help        Show this help message

Common Options:
  -p, --provider <name>   Cloud provider: aws or gcp (default: $CLOUD_PROVIDER or aws)
  -c, --config k=v        Provider config override, repeatable
                          (aws_access_key_id, aws_secret_access_key, region_name,
                           project_id, credentials_path)
  -v, --verbose           Verbose output

Credentials fall back to the usual environment variables: AWS_ACCESS_KEY_ID,
AWS_SECRET_ACCESS_KEY, AWS_DEFAULT_REGION, GOOGLE_CLOUD_PROJECT and
GOOGLE_APPLICATION_CREDENTIALS.

Examples:
  cloudjack secret set db-password hunter2 -p aws -c region_name=eu-west-1
  cloudjack storage sign media videos/intro.mp4 --method GET --expires 15m -p gcp
  cloudjack queue receive orders --max 5 -p aws
  cloudjack logs read app --limit 50 --severity ERROR -p gcp`)
}

// cliOpts carries the options shared by every service command plus the
// per-operation flags, parsed in one pass.
type cliOpts struct {
	provider string
	raw      map[string]string
	verbose  bool

	method    string
	expires   time.Duration
	max       int
	limit     int
	severity  string
	filter    string
	retention int
	comment   string
	private   bool
	wait      time.Duration
}

func parseArgs(args []string) (positional []string, opts cliOpts, err error) {
	opts = cliOpts{
		provider: os.Getenv("CLOUD_PROVIDER"),
		raw:      map[string]string{},
	}
	if opts.provider == "" {
		opts.provider = "aws"
	}

	next := func(i int, flag string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		var value string
		switch arg {
		case "-p", "--provider":
			if value, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			opts.provider = value
			i++
		case "-c", "--config":
			if value, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			key, val, ok := strings.Cut(value, "=")
			if !ok {
				return nil, opts, fmt.Errorf("--config expects key=value, got %q", value)
			}
			opts.raw[key] = val
			i++
		case "-v", "--verbose":
			opts.verbose = true
		case "--method":
			if opts.method, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			i++
		case "--expires", "--wait":
			if value, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return nil, opts, fmt.Errorf("%s: %w", arg, err)
			}
			if arg == "--expires" {
				opts.expires = d
			} else {
				opts.wait = d
			}
			i++
		case "--max", "--limit", "--retention":
			if value, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, opts, fmt.Errorf("%s: %w", arg, err)
			}
			switch arg {
			case "--max":
				opts.max = n
			case "--limit":
				opts.limit = n
			default:
				opts.retention = n
			}
			i++
		case "--severity":
			if opts.severity, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			i++
		case "--filter":
			if opts.filter, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			i++
		case "--comment":
			if opts.comment, err = next(i, arg); err != nil {
				return nil, opts, err
			}
			i++
		case "--private":
			opts.private = true
		default:
			return nil, opts, fmt.Errorf("unknown option: %s", arg)
		}
	}
	return positional, opts, nil
}

func newFactory(opts cliOpts) *cloudjack.Factory {
	if !opts.verbose {
		return universal.NewFactory()
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return universal.NewFactory(cloudjack.WithLogger(log))
}

func runService(ctx context.Context, service string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s requires an operation, see 'cloudjack help'", service)
	}
	positional, opts, err := parseArgs(args[1:])
	if err != nil {
		return err
	}
	provider, err := cloudjack.ParseProvider(opts.provider)
	if err != nil {
		return err
	}

	factory := newFactory(opts)
	op := args[0]

	switch service {
	case "secret":
		return runSecret(ctx, factory, provider, op, positional, opts)
	case "storage":
		return runStorage(ctx, factory, provider, op, positional, opts)
	case "queue":
		return runQueue(ctx, factory, provider, op, positional, opts)
	case "compute":
		return runCompute(ctx, factory, provider, op, positional, opts)
	case "dns":
		return runDNS(ctx, factory, provider, op, positional, opts)
	case "iam":
		return runIAM(ctx, factory, provider, op, positional, opts)
	case "logs":
		return runLogs(ctx, factory, provider, op, positional, opts)
	}
	return fmt.Errorf("unknown service: %s", service)
}

// need checks the positional argument count for an operation.
func need(op string, positional []string, names ...string) error {
	if len(positional) < len(names) {
		return fmt.Errorf("%s requires <%s>", op, strings.Join(names[len(positional):], "> <"))
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runSecret(ctx context.Context, factory *cloudjack.Factory, provider cloudjack.CloudProvider, op string, positional []string, opts cliOpts) error {
	client, err := factory.SecretManager(ctx, provider, opts.raw)
	if err != nil {
		return err
	}
	switch op {
	case "get":
		if err := need(op, positional, "name"); err != nil {
			return err
		}
		value, err := client.GetSecret(ctx, positional[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	case "set":
		if err := need(op, positional, "name", "value"); err != nil {
			return err
		}
		name, value := positional[0], positional[1]
		id, err := client.CreateSecret(ctx, name, value)
		if cloudjack.IsAlreadyExists(err) {
			return client.UpdateSecret(ctx, name, value)
		}
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	case "delete":
		if err := need(op, positional, "name"); err != nil {
			return err
		}
		return client.DeleteSecret(ctx, positional[0])
	case "list":
		names, err := client.ListSecrets(ctx)
		if err != nil {
			return err
		}
		return printJSON(names)
	}
	return fmt.Errorf("unknown secret operation: %s", op)
}

func runStorage(ctx context.Context, factory *cloudjack.Factory, provider cloudjack.CloudProvider, op string, positional []string, opts cliOpts) error {
	client, err := factory.ObjectStorage(ctx, provider, opts.raw)
	if err != nil {
		return err
	}
	switch op {
	case "mb":
		if err := need(op, positional, "bucket"); err != nil {
			return err
		}
		return client.CreateBucket(ctx, positional[0])
	case "rb":
		if err := need(op, positional, "bucket"); err != nil {
			return err
		}
		return client.DeleteBucket(ctx, positional[0])
	case "buckets":
		names, err := client.ListBuckets(ctx)
		if err != nil {
			return err
		}
		return printJSON(names)
	case "put":
		if err := need(op, positional, "bucket", "key", "file"); err != nil {
			return err
		}
		file, err := os.Open(positional[2])
		if err != nil {
			return err
		}
		defer file.Close()
		return client.UploadObject(ctx, positional[0], positional[1], file)
	case "get":
		if err := need(op, positional, "bucket", "key"); err != nil {
			return err
		}
		data, err := client.DownloadObject(ctx, positional[0], positional[1])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "dl":
		if err := need(op, positional, "bucket", "key", "file"); err != nil {
			return err
		}
		return client.DownloadFile(ctx, positional[0], positional[1], positional[2])
	case "rm":
		if err := need(op, positional, "bucket", "key"); err != nil {
			return err
		}
		return client.DeleteObject(ctx, positional[0], positional[1])
	case "ls":
		if err := need(op, positional, "bucket"); err != nil {
			return err
		}
		prefix := ""
		if len(positional) > 1 {
			prefix = positional[1]
		}
		keys, err := client.ListObjects(ctx, positional[0], prefix)
		if err != nil {
			return err
		}
		return printJSON(keys)
	case "sign":
		if err := need(op, positional, "bucket", "key"); err != nil {
			return err
		}
		url, err := client.SignedURL(ctx, positional[0], positional[1], cloudjack.SignedURLOptions{
			Method:  opts.method,
			Expires: opts.expires,
		})
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	}
	return fmt.Errorf("unknown storage operation: %s", op)
}

func runQueue(ctx context.Context, factory *cloudjack.Factory, provider cloudjack.CloudProvider, op string, positional []string, opts cliOpts) error {
	client, err := factory.Queue(ctx, provider, opts.raw)
	if err != nil {
		return err
	}
	switch op {
	case "create":
		if err := need(op, positional, "queue"); err != nil {
			return err
		}
		id, err := client.CreateQueue(ctx, positional[0], cloudjack.QueueOptions{
			VisibilityTimeout: opts.wait,
		})
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	case "delete":
		if err := need(op, positional, "queue"); err != nil {
			return err
		}
		return client.DeleteQueue(ctx, positional[0])
	case "list":
		prefix := ""
		if len(positional) > 0 {
			prefix = positional[0]
		}
		names, err := client.ListQueues(ctx, prefix)
		if err != nil {
			return err
		}
		return printJSON(names)
	case "send":
		if err := need(op, positional, "queue", "body"); err != nil {
			return err
		}
		id, err := client.SendMessage(ctx, positional[0], positional[1], nil)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	case "receive":
		if err := need(op, positional, "queue"); err != nil {
			return err
		}
		messages, err := client.ReceiveMessages(ctx, positional[0], cloudjack.ReceiveOptions{
			MaxMessages: int32(opts.max),
			WaitTime:    opts.wait,
		})
		if err != nil {
			return err
		}
		return printJSON(messages)
	case "ack":
		if err := need(op, positional, "queue", "receipt"); err != nil {
			return err
		}
		return client.DeleteMessage(ctx, positional[0], positional[1])
	}
	return fmt.Errorf("unknown queue operation: %s", op)
}

func runCompute(ctx context.Context, factory *cloudjack.Factory, provider cloudjack.CloudProvider, op string, positional []string, opts cliOpts) error {
	client, err := factory.Compute(ctx, provider, opts.raw)
	if err != nil {
		return err
	}
	switch op {
	case "create":
		if err := need(op, positional, "name", "image", "machine-type"); err != nil {
			return err
		}
		instance, err := client.CreateInstance(ctx, cloudjack.InstanceSpec{
			Name:        positional[0],
			Image:       positional[1],
			MachineType: positional[2],
		})
		if err != nil {
			return err
		}
		return printJSON(instance)
	case "start", "stop", "terminate":
		if err := need(op, positional, "id"); err != nil {
			return err
		}
		switch op {
		case "start":
			return client.StartInstance(ctx, positional[0])
		case "stop":
			return client.StopInstance(ctx, positional[0])
		default:
			return client.TerminateInstance(ctx, positional[0])
		}
	case "get":
		if err := need(op, positional, "id"); err != nil {
			return err
		}
		instance, err := client.GetInstance(ctx, positional[0])
		if err != nil {
			return err
		}
		return printJSON(instance)
	case "list":
		instances, err := client.ListInstances(ctx)
		if err != nil {
			return err
		}
		return printJSON(instances)
	}
	return fmt.Errorf("unknown compute operation: %s", op)
}

func runDNS(ctx context.Context, factory *cloudjack.Factory, provider cloudjack.CloudProvider, op string, positional []string, opts cliOpts) error {
	client, err := factory.DNS(ctx, provider, opts.raw)
	if err != nil {
		return err
	}
	switch op {
	case "create-zone":
		if err := need(op, positional, "domain"); err != nil {
			return err
		}
		zone, err := client.CreateZone(ctx, positional[0], cloudjack.ZoneOptions{
			Comment: opts.comment,
			Private: opts.private,
		})
		if err != nil {
			return err
		}
		return printJSON(zone)
	case "delete-zone":
		if err := need(op, positional, "zone-id"); err != nil {
			return err
		}
		return client.DeleteZone(ctx, positional[0])
	case "zones":
		zones, err := client.ListZones(ctx)
		if err != nil {
			return err
		}
		return printJSON(zones)
	case "upsert", "delete-record":
		if err := need(op, positional, "zone-id", "name", "type", "ttl", "value"); err != nil {
			return err
		}
		ttl, err := strconv.ParseInt(positional[3], 10, 64)
		if err != nil {
			return fmt.Errorf("ttl: %w", err)
		}
		record := cloudjack.RecordSet{
			Name:   positional[1],
			Type:   positional[2],
			TTL:    ttl,
			Values: positional[4:],
		}
		if op == "upsert" {
			return client.CreateRecord(ctx, positional[0], record)
		}
		return client.DeleteRecord(ctx, positional[0], record)
	case "records":
		if err := need(op, positional, "zone-id"); err != nil {
			return err
		}
		records, err := client.ListRecords(ctx, positional[0])
		if err != nil {
			return err
		}
		return printJSON(records)
	}
	return fmt.Errorf("unknown dns operation: %s", op)
}

func runIAM(ctx context.Context, factory *cloudjack.Factory, provider cloudjack.CloudProvider, op string, positional []string, opts cliOpts) error {
	client, err := factory.IAM(ctx, provider, opts.raw)
	if err != nil {
		return err
	}
	switch op {
	case "create-role":
		if err := need(op, positional, "name"); err != nil {
			return err
		}
		spec := cloudjack.RoleSpec{Name: positional[0], Description: opts.comment}
		// Trust policy on stdin for AWS, permissions as arguments for GCP.
		switch provider {
		case cloudjack.ProviderAWS:
			doc, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			spec.AWS = &cloudjack.AWSRoleOptions{TrustPolicyJSON: string(doc)}
		case cloudjack.ProviderGCP:
			spec.GCP = &cloudjack.GCPRoleOptions{Permissions: positional[1:]}
		}
		role, err := client.CreateRole(ctx, spec)
		if err != nil {
			return err
		}
		return printJSON(role)
	case "delete-role":
		if err := need(op, positional, "name"); err != nil {
			return err
		}
		return client.DeleteRole(ctx, positional[0])
	case "roles":
		roles, err := client.ListRoles(ctx)
		if err != nil {
			return err
		}
		return printJSON(roles)
	case "attach", "detach":
		if err := need(op, positional, "role", "policy"); err != nil {
			return err
		}
		if op == "attach" {
			return client.AttachPolicy(ctx, positional[0], positional[1])
		}
		return client.DetachPolicy(ctx, positional[0], positional[1])
	case "policies":
		policies, err := client.ListPolicies(ctx)
		if err != nil {
			return err
		}
		return printJSON(policies)
	}
	return fmt.Errorf("unknown iam operation: %s", op)
}

func runLogs(ctx context.Context, factory *cloudjack.Factory, provider cloudjack.CloudProvider, op string, positional []string, opts cliOpts) error {
	client, err := factory.Logging(ctx, provider, opts.raw)
	if err != nil {
		return err
	}
	switch op {
	case "create":
		if err := need(op, positional, "group"); err != nil {
			return err
		}
		return client.CreateLogGroup(ctx, positional[0], cloudjack.LogGroupOptions{
			RetentionDays: int32(opts.retention),
		})
	case "delete":
		if err := need(op, positional, "group"); err != nil {
			return err
		}
		return client.DeleteLogGroup(ctx, positional[0])
	case "list":
		prefix := ""
		if len(positional) > 0 {
			prefix = positional[0]
		}
		names, err := client.ListLogGroups(ctx, prefix)
		if err != nil {
			return err
		}
		return printJSON(names)
	case "write":
		if err := need(op, positional, "group", "message"); err != nil {
			return err
		}
		return client.WriteLog(ctx, positional[0], positional[1], opts.severity)
	case "read":
		if err := need(op, positional, "group"); err != nil {
			return err
		}
		entries, err := client.ReadLogs(ctx, positional[0], cloudjack.ReadLogsOptions{
			Limit:  int32(opts.limit),
			Filter: opts.filter,
		})
		if err != nil {
			return err
		}
		return printJSON(entries)
	}
	return fmt.Errorf("unknown logs operation: %s", op)
}

func cmdServices() error {
	reg := universal.NewRegistry()
	out := map[string][]string{}
	for _, provider := range reg.Providers() {
		for _, service := range reg.ServicesFor(provider) {
			out[string(provider)] = append(out[string(provider)], string(service))
		}
	}
	return printJSON(out)
}
