package config

import (
	"maps"

	"github.com/nao1215/pgnscraper/internal/transport"
)

// SiteConfig holds request settings for one host.
type SiteConfig struct {
	// Cookie is sent with every request to the host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for the host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File is the structure of the .pgnscraper configuration file.
type File struct {
	// Seeds are crawled when no seed is given on the command line.
	Seeds []string `yaml:"seeds,omitempty"`

	// Output is the output directory.
	Output string `yaml:"output,omitempty"`

	// Workers is the parallel download count.
	Workers int `yaml:"workers,omitempty"`

	// AllowUnicode keeps Unicode letters in saved names.
	AllowUnicode bool `yaml:"allowUnicode,omitempty"`

	// UserAgent overrides the browser User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps a host name (without "www.") to its settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the settings for host, merged over Defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{Cookie: cf.Defaults.Cookie}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	site, ok := cf.Sites[transport.OverrideKey(host)]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	return result
}

// HostOverrides converts the file into the per-host settings used by
// transport.HeaderTransport.
func (cf *File) HostOverrides() map[string]transport.HostOverride {
	if cf == nil {
		return nil
	}

	out := make(map[string]transport.HostOverride, len(cf.Sites)+1)
	if cf.Defaults.Cookie != "" || len(cf.Defaults.Headers) > 0 {
		out[transport.DefaultOverrideKey] = transport.HostOverride{
			Cookie:  cf.Defaults.Cookie,
			Headers: cf.Defaults.Headers,
		}
	}
	for host := range cf.Sites {
		sc := cf.GetSiteConfig(host)
		out[transport.OverrideKey(host)] = transport.HostOverride{
			Cookie:  sc.Cookie,
			Headers: sc.Headers,
		}
	}
	return out
}
