// Package awsclient builds the shared AWS session used by every adapter.
package awsclient

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
)

// Options selects the region, profile and optional endpoint override
// (for local emulators).
type Options struct {
	Region     string
	Profile    string
	Endpoint   string
	MaxRetries int
}

// NewSession creates a session from the default credential chain.
func NewSession(opts Options) (*session.Session, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("aws region is required")
	}

	awsCfg := aws.NewConfig().WithRegion(opts.Region)
	if opts.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(opts.Endpoint).WithS3ForcePathStyle(true)
	}
	if opts.MaxRetries > 0 {
		awsCfg = awsCfg.WithMaxRetries(opts.MaxRetries)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *awsCfg,
		Profile:           opts.Profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return sess, nil
}
