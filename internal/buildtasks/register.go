package buildtasks

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/deps"
	"github.com/vk/meghabuild/internal/javac"
	"github.com/vk/meghabuild/internal/publish"
	"github.com/vk/meghabuild/internal/shade"
	"github.com/vk/meghabuild/internal/task"
)

// Registry receives tasks. *executor.TaskGraph implements it.
type Registry interface {
	Register(t *task.Task) error
}

// Shader assembles the shaded jar. *shade.Engine implements it.
type Shader interface {
	Assemble(ctx context.Context, spec shade.Spec) (*shade.Stats, error)
}

// Publisher releases an artifact. *publish.Pipeline implements it.
type Publisher interface {
	Publish(ctx context.Context, a *publish.Artifact, targets ...*config.PublishTarget) (*publish.Report, error)
}

// Collaborators are the services the tasks delegate to.
type Collaborators struct {
	Compiler  javac.Compiler
	Resolver  deps.Resolver
	Shader    Shader
	Publisher Publisher
	// Reports receives the report of every publish task.
	Reports *Reports
}

const (
	ProcessResources  = "processResources"
	EmbedVersion      = "embedVersion"
	Classes           = "classes"
	ShadowJar         = "shadowJar"
	Publish           = "publish"
	InstallToUserHome = "installToUserHome"
	Clean             = "clean"

	// installEmacsHome is the historical name of installToUserHome.
	installEmacsHome = "installEmacsHome"
)

// Name is the graph name of a module task.
func Name(module, short string) string {
	return module + ":" + short
}

// PublishToName is the short name of the task publishing to target,
// e.g. publishToGithubPackages for "github-packages".
func PublishToName(target string) string {
	var b strings.Builder
	b.WriteString("publishTo")
	upper := true
	for _, r := range target {
		if r == '-' || r == '_' || r == '.' || unicode.IsSpace(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Register adds the built-in tasks of every module, module by module in
// declaration order.
func Register(r Registry, bc *Context, c Collaborators) error {
	if c.Reports == nil {
		c.Reports = &Reports{}
	}
	for _, m := range bc.Modules() {
		tasks, err := moduleTasks(bc, c, m)
		if err != nil {
			return fmt.Errorf("module %s: %w", m.Name, err)
		}
		for _, t := range tasks {
			if err := r.Register(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func moduleTasks(bc *Context, c Collaborators, m *config.Module) ([]*task.Task, error) {
	b := &moduleBuilder{bc: bc, c: c, m: m, layout: bc.Layout(m), rec: bc.Version(m.Name)}

	tasks := []*task.Task{
		b.processResources(),
		b.embedVersion(),
		b.classes(),
		b.shadowJar(),
	}
	publishTasks, err := b.publishTasks()
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, publishTasks...)
	if m.Install {
		tasks = append(tasks, b.installToUserHome())
	}
	return append(tasks, b.clean()), nil
}
