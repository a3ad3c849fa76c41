package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot holds every top-level block a descriptor file may contain.
type fileRoot struct {
	Projects []*projectBlock `hcl:"project,block"`
	Modules  []*moduleBlock  `hcl:"module,block"`
	Targets  []*targetBlock  `hcl:"target,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type projectBlock struct {
	Name         string   `hcl:"name,label"`
	Group        string   `hcl:"group,optional"`
	Repositories []string `hcl:"repositories,optional"`
}

type moduleBlock struct {
	Name            string   `hcl:"name,label"`
	Dir             string   `hcl:"dir,optional"`
	AppName         string   `hcl:"app_name"`
	Version         string   `hcl:"version"`
	Group           string   `hcl:"group,optional"`
	ArtifactID      string   `hcl:"artifact_id,optional"`
	MainClass       string   `hcl:"main_class,optional"`
	Description     string   `hcl:"description,optional"`
	JavaRelease     string   `hcl:"java_release,optional"`
	SourceDir       string   `hcl:"source_dir,optional"`
	ResourceDir     string   `hcl:"resource_dir,optional"`
	VersionTemplate string   `hcl:"version_template,optional"`
	MergeServices   *bool    `hcl:"merge_service_files,optional"`
	Exclude         []string `hcl:"exclude,optional"`
	Publish         []string `hcl:"publish,optional"`
	Install         bool     `hcl:"install,optional"`

	Dependencies []*dependencyBlock `hcl:"dependency,block"`
	Relocations  []*relocateBlock   `hcl:"relocate,block"`
}

type dependencyBlock struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version,optional"`
	Path    string `hcl:"path,optional"`
}

type relocateBlock struct {
	From string `hcl:"from,label"`
	To   string `hcl:"to"`
}

type targetBlock struct {
	Name        string `hcl:"name,label"`
	Kind        string `hcl:"kind"`
	URL         string `hcl:"url,optional"`
	Bucket      string `hcl:"bucket,optional"`
	Region      string `hcl:"region,optional"`
	Prefix      string `hcl:"prefix,optional"`
	Endpoint    string `hcl:"endpoint,optional"`
	UsernameEnv string `hcl:"username_env,optional"`
	SecretEnv   string `hcl:"secret_env,optional"`
}
