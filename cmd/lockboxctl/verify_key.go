package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lockbox/lockbox/internal/cache"
	"github.com/lockbox/lockbox/internal/repository"
	"github.com/lockbox/lockbox/internal/seal"
)

// ciphertextSampler is implemented by the Postgres, Redis and memory stores.
type ciphertextSampler interface {
	SampleCiphertexts(ctx context.Context, limit int) ([]repository.CiphertextRef, error)
}

// errKeyMismatch reports that some sampled secrets failed to decrypt.
var errKeyMismatch = errors.New("stored secrets do not decrypt with this key")

func newVerifyKeyCmd(opts *globalOptions) *cobra.Command {
	var (
		key    string
		sample int
	)

	cmd := &cobra.Command{
		Use:   "verify-key",
		Short: "Check that stored secrets decrypt with ENCRYPTION_KEY",
		Long: `Decrypts up to --sample stored secrets with the given key and reports
any that fail. Run it before deploying a changed ENCRYPTION_KEY.

Exit status is non-zero if any secret fails to decrypt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := seal.ParseKey(key)
			if err != nil {
				return fmt.Errorf("encryption key: %w", err)
			}
			cipher, err := seal.New(raw)
			if err != nil {
				return fmt.Errorf("encryption key: %w", err)
			}

			sampler, closeFn, err := openSampler(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			return verifyKey(cmd.Context(), sampler, cipher, sample, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&key, "key", os.Getenv("ENCRYPTION_KEY"), "base64 encryption key")
	cmd.Flags().IntVar(&sample, "sample", 100, "number of stored secrets to check")
	return cmd
}

func openSampler(ctx context.Context, opts *globalOptions) (ciphertextSampler, func(), error) {
	switch opts.backend {
	case "redis":
		if opts.redisURL == "" {
			return nil, nil, errors.New("redis URL is required (--redis-url or REDIS_URL)")
		}
		c, err := cache.New(ctx, opts.redisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return cache.NewStore(c), func() { _ = c.Close() }, nil
	case "postgres":
		if opts.databaseURL == "" {
			return nil, nil, errNoDatabaseURL
		}
		repo, err := repository.New(ctx, opts.databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend %q", opts.backend)
	}
}

// verifyKey decrypts a sample of stored ciphertexts and prints a report.
// Plaintexts are discarded.
func verifyKey(ctx context.Context, sampler ciphertextSampler, cipher *seal.Cipher, limit int, out io.Writer) error {
	refs, err := sampler.SampleCiphertexts(ctx, limit)
	if err != nil {
		return fmt.Errorf("sample secrets: %w", err)
	}
	if len(refs) == 0 {
		printWarning(out, "no stored secrets to check")
		return nil
	}

	var failed []string
	for _, ref := range refs {
		if _, err := cipher.Decrypt(ref.Ciphertext, ref.ID); err != nil {
			failed = append(failed, ref.ID)
		}
	}

	if len(failed) == 0 {
		printSuccess(out, "%d of %d sampled secrets decrypt with this key", len(refs), len(refs))
		return nil
	}

	printFailure(out, "%d of %d sampled secrets failed to decrypt", len(failed), len(refs))
	for _, id := range failed {
		fmt.Fprintf(out, "  %s\n", id)
	}
	return errKeyMismatch
}
