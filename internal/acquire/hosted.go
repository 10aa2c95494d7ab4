package acquire

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"emoroute/internal/dataset"
	"emoroute/internal/logging"
)

// fetchHosted pulls a Hugging Face dataset repository into the local root.
func (f *Fetcher) fetchHosted(ctx context.Context, d *dataset.Descriptor) error {
	args := []string{"download", d.HostedRepo, "--repo-type", "dataset", "--local-dir", d.LocalRoot}
	f.logger.Debug("downloading hosted dataset",
		logging.String(logging.FieldDataset, d.Key),
		logging.String("repo", d.HostedRepo),
		logging.String("command", f.opts.HuggingFaceCLI+" "+strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(ctx, f.opts.HuggingFaceCLI, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		detail := d.HostedRepo
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			detail += ": " + msg
		}
		return wrapDownload("huggingface-cli", detail, err)
	}
	return nil
}
