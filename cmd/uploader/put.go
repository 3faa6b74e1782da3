package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"domex/api/internal/domain"
	"domex/api/internal/storage"
	"domex/api/internal/upload"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

func newPutCmd() *cobra.Command {
	var owner, mimeType, name string

	cmd := &cobra.Command{
		Use:   "put FILE [FILE...]",
		Short: "Upload a file for an owner and register it",
		Long: "Upload validates the file against the configured allow-list and size limit, streams it to S3 " +
			"and registers its metadata. When several files are given only the first one is uploaded.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, f, err := openFirst(cmd.ErrOrStderr(), args, owner, mimeType, name)
			if err != nil {
				return err
			}
			defer f.Close()

			store, err := storage.NewS3Storage(ctx, cfg.S3, logger)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			orch := upload.NewOrchestrator(store, registry,
				upload.WithAllowedTypes(cfg.Upload.AllowedTypes),
				upload.WithMaxSize(cfg.Upload.MaxSizeBytes),
				upload.WithOwnerCollection(cfg.Upload.OwnerCollection),
				upload.WithLogger(logger),
			)
			return runUpload(ctx, cmd.ErrOrStderr(), orch, []domain.UploadCandidate{c}, func(r *upload.Result) error {
				return printJSON(cmd, map[string]interface{}{
					"id":          r.Registration.ID,
					"storedName":  r.Payload.StoredName,
					"storagePath": r.Payload.StoragePath,
					"fetchUrl":    r.Payload.FetchURL,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "owner key (domain id) the file belongs to")
	cmd.Flags().StringVarP(&mimeType, "type", "t", "", "MIME type (detected from content when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the file's base name)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// runUpload drives one upload and renders its progress on w.
func runUpload(ctx context.Context, w io.Writer, orch *upload.Orchestrator, candidates []domain.UploadCandidate, done func(*upload.Result) error) error {
	task, err := orch.UploadFirst(ctx, candidates)
	if err != nil {
		return err
	}
	for p := range task.Progress() {
		fmt.Fprintf(w, "\rUploading %s... %3.0f%%", candidates[0].DeclaredName, p)
	}
	fmt.Fprintln(w)

	result, err := task.Wait()
	if err != nil {
		return err
	}
	return done(result)
}

// openFirst opens and describes args[0]. Further paths are only reported on w;
// they are never opened, so a missing one does not abort the upload.
func openFirst(w io.Writer, args []string, owner, mimeType, name string) (domain.UploadCandidate, *os.File, error) {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadCandidate{}, nil, err
	}
	c, err := buildCandidate(f, path, owner, mimeType)
	if err != nil {
		f.Close()
		return domain.UploadCandidate{}, nil, err
	}
	if name != "" {
		c.DeclaredName = name
	}
	if extra := args[1:]; len(extra) > 0 {
		fmt.Fprintf(w, "Only %s will be uploaded, ignoring: %s\n", filepath.Base(path), strings.Join(extra, ", "))
	}
	return c, f, nil
}

// buildCandidate describes an opened file. The MIME type is sniffed from the
// content when not given; the reader is rewound afterwards.
func buildCandidate(f *os.File, path, owner, mimeType string) (domain.UploadCandidate, error) {
	info, err := f.Stat()
	if err != nil {
		return domain.UploadCandidate{}, err
	}
	if info.IsDir() {
		return domain.UploadCandidate{}, fmt.Errorf("%s is a directory", path)
	}
	if mimeType == "" {
		mimeType, err = detectMimeType(f)
		if err != nil {
			return domain.UploadCandidate{}, fmt.Errorf("detect type of %s: %w", path, err)
		}
	}
	return domain.UploadCandidate{
		Content:          f,
		DeclaredName:     filepath.Base(path),
		DeclaredMimeType: mimeType,
		SizeBytes:        info.Size(),
		OwnerKey:         owner,
	}, nil
}

func detectMimeType(rs io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(rs)
	if err != nil {
		return "", err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	// Drop parameters such as "; charset=utf-8".
	base, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(base), nil
}
