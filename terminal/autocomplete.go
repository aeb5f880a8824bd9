package terminal

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"binxfer/protocol"

	"github.com/c-bata/go-prompt"
)

// RemoteFileSource supplies the names last listed by the server.
type RemoteFileSource interface {
	RemoteFiles() []string
}

// CommandCompleter handles command and argument completion
type CommandCompleter struct {
	commands          []prompt.Suggest
	remote            RemoteFileSource
	localFileCache    map[string][]string // Cache for local files by directory
	localFileCacheAge map[string]time.Time
	cacheTimeout      time.Duration
}

// NewCommandCompleter creates a new command completer
func NewCommandCompleter(remote RemoteFileSource) *CommandCompleter {
	commands := make([]prompt.Suggest, 0, len(protocol.Commands))
	for _, c := range protocol.Commands {
		commands = append(commands, prompt.Suggest{Text: c.Verb, Description: c.Description})
	}

	return &CommandCompleter{
		commands:          commands,
		remote:            remote,
		localFileCache:    make(map[string][]string),
		localFileCacheAge: make(map[string]time.Time),
		cacheTimeout:      10 * time.Second,
	}
}

// Completer returns suggestions for the current input
func (c *CommandCompleter) Completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	words := strings.Fields(text)

	// If we're at the start of a new command
	if len(words) == 0 || (len(words) == 1 && !strings.HasSuffix(text, " ")) {
		return c.suggestCommands(words)
	}

	return c.suggestArguments(words, strings.HasSuffix(text, " "))
}

func (c *CommandCompleter) suggestCommands(words []string) []prompt.Suggest {
	if len(words) == 0 {
		return c.commands
	}
	return prompt.FilterHasPrefix(c.commands, words[0], true)
}

// suggestArguments completes remote names for get and the local path for put.
func (c *CommandCompleter) suggestArguments(words []string, fresh bool) []prompt.Suggest {
	position := len(words) - 1
	prefix := words[len(words)-1]
	if fresh {
		position++
		prefix = ""
	}

	switch strings.ToLower(words[0]) {
	case protocol.VerbGet:
		if position == 1 {
			return c.suggestRemoteFiles(prefix)
		}
	case protocol.VerbPut:
		switch position {
		case 1:
			return c.suggestLocalFiles(prefix)
		case 2:
			return c.suggestRemoteName(words[1])
		}
	}
	return nil
}

func (c *CommandCompleter) suggestRemoteFiles(prefix string) []prompt.Suggest {
	if c.remote == nil {
		return nil
	}

	var suggestions []prompt.Suggest
	for _, file := range c.remote.RemoteFiles() {
		// Skip hidden files unless explicitly requested
		if strings.HasPrefix(file, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(file), strings.ToLower(prefix)) {
			suggestions = append(suggestions, prompt.Suggest{Text: file, Description: "Remote file"})
		}
	}
	return suggestions
}

// suggestRemoteName offers the base name of the local file as the remote name.
func (c *CommandCompleter) suggestRemoteName(localPath string) []prompt.Suggest {
	base := filepath.Base(localPath)
	if base == "." || base == string(filepath.Separator) {
		return nil
	}
	return []prompt.Suggest{{Text: base, Description: "Remote file name"}}
}

// suggestLocalFiles lists regular files in the directory named by prefix.
func (c *CommandCompleter) suggestLocalFiles(prefix string) []prompt.Suggest {
	dir, partial := filepath.Split(prefix)
	lookup := dir
	if lookup == "" {
		lookup = "."
	}

	files, ok := c.localFileCache[lookup]
	if !ok || time.Since(c.localFileCacheAge[lookup]) > c.cacheTimeout {
		entries, err := os.ReadDir(lookup)
		if err != nil {
			return nil
		}
		files = nil
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				files = append(files, entry.Name())
			}
		}
		c.localFileCache[lookup] = files
		c.localFileCacheAge[lookup] = time.Now()
	}

	var suggestions []prompt.Suggest
	for _, file := range files {
		if strings.HasPrefix(file, ".") && !strings.HasPrefix(partial, ".") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(file), strings.ToLower(partial)) {
			suggestions = append(suggestions, prompt.Suggest{Text: dir + file, Description: "Local file"})
		}
	}
	return suggestions
}

// ClearCache clears all cached suggestions
func (c *CommandCompleter) ClearCache() {
	c.localFileCache = make(map[string][]string)
	c.localFileCacheAge = make(map[string]time.Time)
}
