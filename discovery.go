// discovery.go
package ikarm

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/discovery"
	"go.viam.com/rdk/services/generic"
)

// LinksDiscoveryModel is the discovery service proposing one ik-4dof service per links file.
var LinksDiscoveryModel = resource.NewModel("devrel", "kinematics", "links-discovery")

const linksFileSuffix = "_links.json"

func init() {
	resource.RegisterService(
		discovery.API,
		LinksDiscoveryModel,
		resource.Registration[discovery.Service, *LinksDiscoveryConfig]{
			Constructor: newLinksDiscovery,
		})
}

// LinksDiscoveryConfig is the configuration for the discovery service
type LinksDiscoveryConfig struct {
	// Directory to scan. Defaults to $VIAM_MODULE_DATA, then /tmp.
	Dir string `json:"dir,omitempty"`
	// Name of an arm component to put in every proposed config.
	Arm string `json:"arm,omitempty"`
}

// Validate ensures the config is valid
func (cfg *LinksDiscoveryConfig) Validate(path string) ([]string, []string, error) {
	return nil, nil, nil
}

type linksDiscovery struct {
	resource.Named
	resource.AlwaysRebuild
	resource.TriviallyCloseable
	logger logging.Logger
	cfg    *LinksDiscoveryConfig
}

func newLinksDiscovery(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (discovery.Service, error) {
	cfg, err := resource.NativeConfig[*LinksDiscoveryConfig](conf)
	if err != nil {
		return nil, err
	}

	return &linksDiscovery{
		Named:  conf.ResourceName().AsNamed(),
		logger: logger,
		cfg:    cfg,
	}, nil
}

func (dis *linksDiscovery) scanDir() string {
	if dis.cfg.Dir != "" {
		return dis.cfg.Dir
	}
	moduleDataDir := os.Getenv("VIAM_MODULE_DATA")
	if moduleDataDir == "" {
		moduleDataDir = "/tmp"
	}
	return moduleDataDir
}

// DiscoverResources proposes an ik-4dof service for every valid links file in the scan directory
func (dis *linksDiscovery) DiscoverResources(ctx context.Context, extra map[string]any) ([]resource.Config, error) {
	dir, err := filepath.Abs(dis.scanDir())
	if err != nil {
		return nil, err
	}
	dis.logger.Infof("Looking for links files in %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	candidates := filterCandidateFiles(names)
	dis.logger.Debugf("Filtered %d files to %d candidates", len(names), len(candidates))

	var configs []resource.Config
	for _, name := range candidates {
		select {
		case <-ctx.Done():
			dis.logger.Info("Discovery cancelled")
			return configs, ctx.Err()
		default:
		}

		path := filepath.Join(dir, name)
		links, err := LoadLinkLengthsFromFile(path)
		if err != nil {
			dis.logger.Debugf("Skipping %s: %v", name, err)
			continue
		}
		dis.logger.Infof("Discovered links file %s (%v)", name, links)
		configs = append(configs, dis.generateConfig(path))
	}

	if len(configs) == 0 {
		dis.logger.Info("No links files discovered")
	}
	return configs, nil
}

// generateConfig proposes a service for the links file at path. The path is kept
// absolute so it does not resolve against VIAM_MODULE_DATA.
func (dis *linksDiscovery) generateConfig(path string) resource.Config {
	attrs := map[string]interface{}{
		"links_file":       path,
		"watch_links_file": true,
	}
	if dis.cfg.Arm != "" {
		attrs["arm"] = dis.cfg.Arm
	}
	return resource.Config{
		Name:       "ik-" + extractLinksSuffix(filepath.Base(path)),
		API:        generic.API,
		Model:      Model,
		Attributes: attrs,
	}
}

// filterCandidateFiles keeps links.json and *_links.json, sorted.
func filterCandidateFiles(names []string) []string {
	candidates := []string{}
	for _, name := range names {
		if name == "links.json" || (strings.HasSuffix(name, linksFileSuffix) && name != linksFileSuffix) {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)
	return candidates
}

// extractLinksSuffix derives a resource name suffix from a links file name
// arm1_links.json -> "arm1"
// links.json -> "default"
func extractLinksSuffix(fileName string) string {
	if fileName == "links.json" {
		return "default"
	}
	return strings.TrimSuffix(fileName, linksFileSuffix)
}
