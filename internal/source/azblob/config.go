// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azblob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrInvalidEnvVariable reports malformed environment variable values.
	ErrInvalidEnvVariable = errors.New("invalid environment value")
)

// config holds all the configuration needed to download a blob.
type config struct {
	AccountURL       string `env:"AZURE_STORAGE_ACCOUNT_URL"`
	ConnectionString string `env:"AZURE_STORAGE_CONNECTION_STRING"`
	Container        string `env:"AZURE_STORAGE_CONTAINER"`
	Blob             string `env:"AZURE_STORAGE_BLOB"`
}

func (c config) validate() error {
	switch {
	case len(c.ConnectionString) == 0 && len(c.AccountURL) == 0:
		return fmt.Errorf("%w: %s", ErrInvalidEnvVariable, "one of AZURE_STORAGE_CONNECTION_STRING or AZURE_STORAGE_ACCOUNT_URL must be present")
	case len(c.Container) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "AZURE_STORAGE_CONTAINER")
	case len(c.Blob) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "AZURE_STORAGE_BLOB")
	}

	return nil
}

// serviceURL accepts either a full service url or a bare storage account name.
func (c config) serviceURL() string {
	if strings.Contains(c.AccountURL, "://") {
		return c.AccountURL
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.AccountURL)
}

func (c config) newClient() (*azblob.Client, error) {
	if c.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(c.ConnectionString, nil)
	}

	credentials, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(c.serviceURL(), credentials, nil)
}
