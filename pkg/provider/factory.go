package provider

import (
	"fmt"
	"os"

	"github.com/mattyatplay-coder/vibeboard/pkg/config"
	"github.com/mattyatplay-coder/vibeboard/pkg/logging"
)

// NewAdapterFactory returns the factory used by the startup probe. The
// credential value is read here, once, and handed straight to the adapter;
// it never lands in config or logs.
func NewAdapterFactory(cfg *config.Config, logger *logging.Logger) AdapterFactory {
	return func(desc BackendDescriptor) (Adapter, error) {
		secret := ""
		if desc.RequiresCredential {
			secret = os.Getenv(desc.CredentialEnv)
		}
		baseURL := ""
		if cfg != nil {
			baseURL = cfg.Providers.BaseURLFor(string(desc.Kind))
			// Per-request HTTP logging is opt-in.
			if !cfg.Logging.NetworkLogs {
				logger = nil
			}
		}

		switch desc.Kind {
		case KindComfy:
			return newComfyAdapter(baseURL, logger), nil
		case KindFal:
			return newFalAdapter(secret, baseURL, logger), nil
		case KindReplicate:
			return newReplicateAdapter(secret, baseURL, logger), nil
		case KindOpenAI:
			return newOpenAIAdapter(secret, baseURL, logger), nil
		case KindRunway:
			return newRunwayAdapter(secret, baseURL, logger), nil
		default:
			return nil, fmt.Errorf("unknown provider kind: %s", desc.Kind)
		}
	}
}
