package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mf-search-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// DecodeVariables unmarshals the job variables into into. Malformed
// variables are a non-retryable input error.
func DecodeVariables(job entities.Job, into interface{}) error {
	raw := strings.TrimSpace(job.Variables)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		return errors.NewInvalidInputError(fmt.Errorf("parse job variables: %w", err))
	}
	return nil
}

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("encode job output: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("complete job %d: %w", job.Key, err)
	}
	return nil
}
