package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/dsvault/internal/config"
	dserrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/pkg/kv"
)

// kvFlags are shared by the kv subcommands.
type kvFlags struct {
	mount string
}

func (f *kvFlags) client(cfg *config.Config) (*kv.Client, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	t, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return kv.NewClient(t, kv.WithDefaultMount(cfg.KVMount()), kv.WithLogger(cfg.Logger)), nil
}

func (f *kvFlags) options(extra ...kv.Option) []kv.Option {
	var opts []kv.Option
	if f.mount != "" {
		opts = append(opts, kv.MountPoint(f.mount))
	}
	return append(opts, extra...)
}

func NewKVCommand(cfg *config.Config) *cobra.Command {
	flags := &kvFlags{}

	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Read secrets from a KV version 2 mount",
		Long: `Read secrets, folder listings and version history from a KV version 2
secrets engine.

The mount defaults to kv.mount in dsvault.yaml, DSVAULT_KV_MOUNT, or "secret".`,
	}

	cmd.PersistentFlags().StringVar(&flags.mount, "mount", "", "KV v2 mount point")

	cmd.AddCommand(
		newKVGetCommand(cfg, flags),
		newKVListCommand(cfg, flags),
		newKVMetadataCommand(cfg, flags),
		newKVUnwrapCommand(cfg),
		newKVWatchCommand(cfg, flags),
	)

	return cmd
}

func newKVGetCommand(cfg *config.Config, flags *kvFlags) *cobra.Command {
	var (
		version    int
		wrapTTL    string
		field      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Read a secret",
		Long: `Read the latest live version of a secret, or a specific version with
--version. Deleted and destroyed versions are reported as not found.

With --wrap-ttl the response is wrapped and only the wrapping token is
printed; redeem it with 'dsvault kv unwrap'.

Examples:
  dsvault kv get app/config
  dsvault kv get app/config --version 2 --field password
  dsvault kv get app/config --wrap-ttl 5m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client(cfg)
			if err != nil {
				return err
			}

			var extra []kv.Option
			if cmd.Flags().Changed("version") {
				extra = append(extra, kv.Version(version))
			}
			if wrapTTL != "" {
				extra = append(extra, kv.WrapTTL(wrapTTL))
			}

			result, err := client.ReadSecret(cmd.Context(), args[0], flags.options(extra...)...)
			if err != nil {
				return dserrors.VaultError("read", err)
			}

			out := cmd.OutOrStdout()
			if wrap, ok := result.WrapInfo(); ok {
				return printWrapInfo(out, wrap, jsonOutput)
			}

			secret, _ := result.Secret()
			if field != "" {
				value, ok := secret.Data.Data[field]
				if !ok {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Field '%s' not found in %s", field, args[0]),
						Suggestion: fmt.Sprintf("Available fields: %s", strings.Join(sortedKeys(secret.Data.Data), ", ")),
					}
				}
				_, _ = fmt.Fprint(out, formatValue(value))
				return nil
			}

			return printSecret(out, secret, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Version to read (default: latest)")
	cmd.Flags().StringVar(&wrapTTL, "wrap-ttl", "", "Wrap the response for this long (e.g. 60s, 5m)")
	cmd.Flags().StringVar(&field, "field", "", "Print only this field's value")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func newKVListCommand(cfg *config.Config, flags *kvFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list [PATH]",
		Short: "List the children of a folder",
		Long: `List the immediate children of a folder. Folders end with "/".
Without PATH the root of the mount is listed.

Examples:
  dsvault kv list
  dsvault kv list app/ --mount team-kv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client(cfg)
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			result, err := client.ReadSecretPathList(cmd.Context(), path, flags.options()...)
			if err != nil {
				return dserrors.VaultError("list", err)
			}

			secret, _ := result.Secret()
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, secret.Data.Keys)
			}
			for _, key := range secret.Data.Keys {
				_, _ = fmt.Fprintln(out, key)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func newKVMetadataCommand(cfg *config.Config, flags *kvFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "metadata PATH",
		Short: "Show the version history of a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client(cfg)
			if err != nil {
				return err
			}

			result, err := client.ReadSecretMetadata(cmd.Context(), args[0], flags.options()...)
			if err != nil {
				return dserrors.VaultError("metadata read", err)
			}

			secret, _ := result.Secret()
			return printMetadata(cmd.OutOrStdout(), secret.Data, time.Now(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func newKVUnwrapCommand(cfg *config.Config) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "unwrap TOKEN",
		Short: "Redeem a wrapping token",
		Long: `Redeem a wrapping token returned by 'dsvault kv get --wrap-ttl' and
print the secret it wraps. A wrapping token can be redeemed once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := (&kvFlags{}).client(cfg)
			if err != nil {
				return err
			}

			secret, err := client.UnwrapSecret(cmd.Context(), args[0])
			if err != nil {
				return dserrors.VaultError("unwrap", err)
			}
			return printSecret(cmd.OutOrStdout(), secret, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

type secretOutput struct {
	RequestID     string                 `json:"request_id,omitempty"`
	LeaseDuration int                    `json:"lease_duration,omitempty"`
	Warnings      []string               `json:"warnings,omitempty"`
	Data          map[string]interface{} `json:"data"`
	Metadata      versionOutput          `json:"metadata"`
}

type versionOutput struct {
	Version        int               `json:"version"`
	CreatedTime    time.Time         `json:"created_time"`
	DeletionTime   *time.Time        `json:"deletion_time,omitempty"`
	Destroyed      bool              `json:"destroyed"`
	State          string            `json:"state,omitempty"`
	CustomMetadata map[string]string `json:"custom_metadata,omitempty"`
}

type metadataOutput struct {
	CurrentVersion     int               `json:"current_version"`
	OldestVersion      int               `json:"oldest_version"`
	MaxVersions        int               `json:"max_versions"`
	CASRequired        bool              `json:"cas_required"`
	DeleteVersionAfter string            `json:"delete_version_after,omitempty"`
	CreatedTime        time.Time         `json:"created_time"`
	UpdatedTime        time.Time         `json:"updated_time"`
	CustomMetadata     map[string]string `json:"custom_metadata,omitempty"`
	Versions           []versionOutput   `json:"versions"`
}

type wrapOutput struct {
	Token        string    `json:"token"`
	Accessor     string    `json:"accessor"`
	TTL          int       `json:"ttl"`
	CreationTime time.Time `json:"creation_time"`
	CreationPath string    `json:"creation_path"`
}

func printSecret(out io.Writer, secret kv.Secret[kv.SecretData], jsonOutput bool) error {
	meta := secret.Data.Metadata
	if jsonOutput {
		v := versionOutput{
			Version:        meta.Version,
			CreatedTime:    meta.CreatedTime,
			Destroyed:      meta.Destroyed,
			CustomMetadata: meta.CustomMetadata,
		}
		if !meta.DeletionTime.IsZero() {
			v.DeletionTime = &meta.DeletionTime
		}
		return writeJSON(out, secretOutput{
			RequestID:     secret.RequestID,
			LeaseDuration: secret.LeaseDuration,
			Warnings:      secret.Warnings,
			Data:          secret.Data.Data,
			Metadata:      v,
		})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "== Metadata ==\n")
	_, _ = fmt.Fprintf(w, "version\t%d\n", meta.Version)
	_, _ = fmt.Fprintf(w, "created_time\t%s\n", formatTime(meta.CreatedTime))
	for _, k := range sortedKeys(meta.CustomMetadata) {
		_, _ = fmt.Fprintf(w, "custom_metadata.%s\t%s\n", k, meta.CustomMetadata[k])
	}
	_, _ = fmt.Fprintf(w, "\n== Data ==\n")
	_, _ = fmt.Fprintf(w, "KEY\tVALUE\n")
	_, _ = fmt.Fprintf(w, "---\t-----\n")
	for _, k := range sortedKeys(secret.Data.Data) {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", k, formatValue(secret.Data.Data[k]))
	}
	for _, warning := range secret.Warnings {
		_, _ = fmt.Fprintf(w, "\nWARNING: %s\n", warning)
	}
	return w.Flush()
}

func printMetadata(out io.Writer, meta kv.FullSecretMetadata, now time.Time, jsonOutput bool) error {
	if jsonOutput {
		m := metadataOutput{
			CurrentVersion:     meta.CurrentVersion,
			OldestVersion:      meta.OldestVersion,
			MaxVersions:        meta.MaxVersions,
			CASRequired:        meta.CASRequired,
			DeleteVersionAfter: meta.DeleteVersionAfter,
			CreatedTime:        meta.CreatedTime,
			UpdatedTime:        meta.UpdatedTime,
			CustomMetadata:     meta.CustomMetadata,
			Versions:           make([]versionOutput, 0, len(meta.Versions)),
		}
		for _, n := range meta.VersionNumbers() {
			vm := meta.Versions[n]
			v := versionOutput{
				Version:     n,
				CreatedTime: vm.CreatedTime,
				Destroyed:   vm.Destroyed,
				State:       vm.StateAt(now).String(),
			}
			if !vm.DeletionTime.IsZero() {
				deleted := vm.DeletionTime
				v.DeletionTime = &deleted
			}
			m.Versions = append(m.Versions, v)
		}
		return writeJSON(out, m)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "current_version\t%d\n", meta.CurrentVersion)
	_, _ = fmt.Fprintf(w, "oldest_version\t%d\n", meta.OldestVersion)
	_, _ = fmt.Fprintf(w, "max_versions\t%d\n", meta.MaxVersions)
	_, _ = fmt.Fprintf(w, "cas_required\t%t\n", meta.CASRequired)
	_, _ = fmt.Fprintf(w, "delete_version_after\t%s\n", meta.DeleteVersionAfter)
	_, _ = fmt.Fprintf(w, "created_time\t%s\n", formatTime(meta.CreatedTime))
	_, _ = fmt.Fprintf(w, "updated_time\t%s\n", formatTime(meta.UpdatedTime))
	for _, k := range sortedKeys(meta.CustomMetadata) {
		_, _ = fmt.Fprintf(w, "custom_metadata.%s\t%s\n", k, meta.CustomMetadata[k])
	}

	_, _ = fmt.Fprintf(w, "\nVERSION\tSTATE\tCREATED\tDELETED\n")
	_, _ = fmt.Fprintf(w, "-------\t-----\t-------\t-------\n")
	for _, n := range meta.VersionNumbers() {
		vm := meta.Versions[n]
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n, vm.StateAt(now), formatTime(vm.CreatedTime), formatTime(vm.DeletionTime))
	}
	return w.Flush()
}

func printWrapInfo(out io.Writer, wrap kv.WrapInfo, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(out, wrapOutput{
			Token:        wrap.Token,
			Accessor:     wrap.Accessor,
			TTL:          int(wrap.TTL / time.Second),
			CreationTime: wrap.CreationTime,
			CreationPath: wrap.CreationPath,
		})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "wrapping_token:\t%s\n", wrap.Token)
	_, _ = fmt.Fprintf(w, "wrapping_accessor:\t%s\n", wrap.Accessor)
	_, _ = fmt.Fprintf(w, "wrapping_token_ttl:\t%s\n", wrap.TTL)
	_, _ = fmt.Fprintf(w, "wrapping_token_creation_time:\t%s\n", formatTime(wrap.CreationTime))
	_, _ = fmt.Fprintf(w, "wrapping_token_creation_path:\t%s\n", wrap.CreationPath)
	return w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
