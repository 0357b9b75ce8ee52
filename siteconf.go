package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type SiteConf struct {
	SiteTitle         string `mapstructure:"siteTitle"`
	BaseUrl           string `mapstructure:"baseUrl"`
	Author, AuthorUri string

	SourceDir    string `mapstructure:"sourceDir"`
	BlogDir      string `mapstructure:"blogDir"`
	PageTemplate string `mapstructure:"pageTemplate"`
	PostTemplate string `mapstructure:"postTemplate"`
	StaticDir    string `mapstructure:"staticDir"`

	OutDir    string `mapstructure:"outDir"`
	CssOutDir string `mapstructure:"cssOutDir"`

	Markdown string
	Workers  int
	Port     int

	// Extra universal placeholder values. Keys are upper-cased.
	Substitutions map[string]string
}

func (c *SiteConf) BlogPath() string {
	return filepath.Join(c.SourceDir, c.BlogDir)
}

// Pages are written by source name, so writing into the source root would
// overwrite HTML sources.
func (c *SiteConf) checkOutput() error {
	if sameFile(c.OutDir, c.SourceDir) {
		return newError(ConfigurationError, c.OutDir, "output directory is the source directory")
	}
	if c.StaticDir == "" {
		return nil
	}
	// The copy of the static directory is replaced wholesale on clean.
	dest := c.staticDest()
	if within(c.SourceDir, dest) {
		return newError(ConfigurationError, dest, "static output would contain the source directory")
	}
	if within(dest, c.StaticDir) {
		return newError(ConfigurationError, dest, "static output lies inside the static directory %v", c.StaticDir)
	}
	return nil
}

func (c *SiteConf) staticDest() string {
	return filepath.Join(c.OutDir, filepath.Base(c.StaticDir))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("siteTitle", "muaddib")
	v.SetDefault("sourceDir", "_src")
	v.SetDefault("blogDir", "blog")
	v.SetDefault("pageTemplate", "page.tmpl")
	v.SetDefault("postTemplate", "post.tmpl")
	v.SetDefault("staticDir", "static")
	v.SetDefault("outDir", ".")
	v.SetDefault("cssOutDir", filepath.Join("assets", "css"))
	v.SetDefault("markdown", "blackfriday")
	v.SetDefault("workers", 4)
	v.SetDefault("port", 9999)
}

// readConf layers defaults, the JSON config file, MUADDIB_* environment
// variables and the command-line flags in flags. Without an explicit
// cfgFile a missing muaddib.json is fine.
func readConf(cfgFile string, flags *pflag.FlagSet, log *zap.SugaredLogger) (*SiteConf, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("muaddib")
		v.SetConfigType("json")
	}

	v.SetEnvPrefix("MUADDIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	baseDir := "."
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, &Error{Kind: ConfigurationError, Path: cfgFile, Err: err}
		}
		log.Debugf("no config file, using defaults")
	} else {
		log.Infof("using config file %v", v.ConfigFileUsed())
		baseDir = filepath.Dir(v.ConfigFileUsed())
	}

	fromFlag := map[string]bool{}
	if flags != nil {
		for key, name := range map[string]string{"sourceDir": "source", "blogDir": "blog"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
				fromFlag[key] = f.Changed
			}
		}
	}

	conf := SiteConf{}
	if err := v.Unmarshal(&conf); err != nil {
		return nil, &Error{Kind: ConfigurationError, Path: v.ConfigFileUsed(), Err: fmt.Errorf("decoding config: %w", err)}
	}

	if err := conf.normalize(baseDir, fromFlag["sourceDir"]); err != nil {
		return nil, err
	}
	return &conf, nil
}

// normalize resolves relative paths and checks values. Paths in a config file
// are relative to the file; a source directory from the command line is
// relative to the working directory. Templates and the static directory live
// in the source directory, the stylesheet directory in the output directory.
func (c *SiteConf) normalize(baseDir string, sourceFromFlag bool) error {
	if c.SourceDir == "" || c.BlogDir == "" || c.PageTemplate == "" || c.PostTemplate == "" {
		return newError(ConfigurationError, "", "sourceDir, blogDir, pageTemplate and postTemplate must not be empty")
	}
	if strings.ContainsAny(c.BlogDir, `/\`) {
		return newError(ConfigurationError, c.BlogDir, "blogDir must be a directory name inside sourceDir")
	}
	if c.OutDir == "" {
		c.OutDir = "."
	}
	if c.CssOutDir == "" {
		c.CssOutDir = filepath.Join("assets", "css")
	}
	if !sourceFromFlag {
		c.SourceDir = normalizePath(c.SourceDir, baseDir)
	}
	c.OutDir = normalizePath(c.OutDir, baseDir)
	c.PageTemplate = normalizePath(c.PageTemplate, c.SourceDir)
	c.PostTemplate = normalizePath(c.PostTemplate, c.SourceDir)
	if c.StaticDir != "" {
		c.StaticDir = normalizePath(c.StaticDir, c.SourceDir)
	}
	c.CssOutDir = normalizePath(c.CssOutDir, c.OutDir)

	if c.Workers < 1 {
		c.Workers = 1
	}

	subs := make(map[string]string, len(c.Substitutions))
	for k, val := range c.Substitutions {
		key := strings.ToUpper(k)
		if !validPlaceholderKey(key) || key == keyBody || key == keyTitle || key == keyDate {
			return newError(ConfigurationError, "", "invalid substitution key %q", k)
		}
		subs[key] = val
	}
	c.Substitutions = subs
	return nil
}

func normalizePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
