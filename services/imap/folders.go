package imap

import (
	"context"
	"sort"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

// specialUseKeywords maps lowercase folder name fragments to roles. The
// table covers English and German provider conventions; "archiv" matches
// both "Archiv" and "Archive".
var specialUseKeywords = []struct {
	fragment string
	role     interfaces.SpecialUse
}{
	{"gesendet", interfaces.SpecialUseSent},
	{"sent", interfaces.SpecialUseSent},
	{"entwurf", interfaces.SpecialUseDrafts},
	{"entwürfe", interfaces.SpecialUseDrafts},
	{"draft", interfaces.SpecialUseDrafts},
	{"papierkorb", interfaces.SpecialUseTrash},
	{"trash", interfaces.SpecialUseTrash},
	{"deleted", interfaces.SpecialUseTrash},
	{"spam", interfaces.SpecialUseSpam},
	{"junk", interfaces.SpecialUseSpam},
	{"archiv", interfaces.SpecialUseArchive},
}

func classifySpecialUse(path, delimiter string) interfaces.SpecialUse {
	if strings.EqualFold(path, "INBOX") {
		return interfaces.SpecialUseInbox
	}

	segment := path
	if delimiter != "" {
		parts := strings.Split(path, delimiter)
		segment = parts[len(parts)-1]
	}
	segment = strings.ToLower(segment)

	for _, entry := range specialUseKeywords {
		if strings.Contains(segment, entry.fragment) {
			return entry.role
		}
	}
	return interfaces.SpecialUseNone
}

func (s *IMAPService) listFolders(ctx context.Context, session *Session) ([]interfaces.FolderDescriptor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.listFolders")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	c := session.client

	c.Timeout = 30 * time.Second
	mailboxes := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var infos []*goimap.MailboxInfo
	for m := range mailboxes {
		infos = append(infos, m)
	}

	c.Timeout = 0
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list folders")
	}

	descriptors := buildFolderTree(infos)
	span.SetTag("folders.count", len(descriptors))

	for i := range descriptors {
		if hasAttribute(findInfo(infos, descriptors[i].Path), goimap.NoSelectAttr) {
			continue
		}
		stats, err := s.folderStats(session, descriptors[i].Path)
		if err != nil {
			// counts are best effort; the tree is still valid without them
			tracing.TraceErr(span, err)
			continue
		}
		descriptors[i].TotalCount = stats.Total
		descriptors[i].UnreadCount = stats.Unseen
	}

	return descriptors, nil
}

// buildFolderTree orders folders depth-first with parents before their
// children and siblings sorted alphabetically, INBOX first at the root.
func buildFolderTree(infos []*goimap.MailboxInfo) []interfaces.FolderDescriptor {
	byParent := make(map[string][]*goimap.MailboxInfo)
	known := make(map[string]bool, len(infos))
	for _, info := range infos {
		known[info.Name] = true
	}
	for _, info := range infos {
		parent := parentPath(info.Name, info.Delimiter)
		byParent[parent] = append(byParent[parent], info)
	}

	for _, siblings := range byParent {
		sort.Slice(siblings, func(i, j int) bool {
			a, b := siblings[i].Name, siblings[j].Name
			if strings.EqualFold(a, "INBOX") != strings.EqualFold(b, "INBOX") {
				return strings.EqualFold(a, "INBOX")
			}
			return strings.ToLower(a) < strings.ToLower(b)
		})
	}

	descriptors := make([]interfaces.FolderDescriptor, 0, len(infos))
	var walk func(parent string, level int)
	walk = func(parent string, level int) {
		for _, info := range byParent[parent] {
			name := info.Name
			if info.Delimiter != "" {
				parts := strings.Split(info.Name, info.Delimiter)
				name = parts[len(parts)-1]
			}
			descriptors = append(descriptors, interfaces.FolderDescriptor{
				Name:        name,
				Path:        info.Name,
				Delimiter:   info.Delimiter,
				ParentPath:  parent,
				Level:       level,
				SpecialUse:  classifySpecialUse(info.Name, info.Delimiter),
				HasChildren: len(byParent[info.Name]) > 0 || hasAttribute(info, goimap.HasChildrenAttr),
			})
			walk(info.Name, level+1)
		}
	}
	walk("", 0)

	// orphaned children whose parent the server never listed
	for _, info := range infos {
		parent := parentPath(info.Name, info.Delimiter)
		if parent != "" && !known[parent] && !containsPath(descriptors, info.Name) {
			descriptors = append(descriptors, interfaces.FolderDescriptor{
				Name:       info.Name,
				Path:       info.Name,
				Delimiter:  info.Delimiter,
				ParentPath: parent,
				Level:      strings.Count(info.Name, info.Delimiter),
				SpecialUse: classifySpecialUse(info.Name, info.Delimiter),
			})
		}
	}

	return descriptors
}

func (s *IMAPService) folderStats(session *Session, folder string) (interfaces.FolderStats, error) {
	c := session.client

	c.Timeout = 10 * time.Second
	status, err := c.Status(folder, []goimap.StatusItem{
		goimap.StatusMessages,
		goimap.StatusRecent,
		goimap.StatusUnseen,
	})
	c.Timeout = 0
	if err != nil {
		return interfaces.FolderStats{}, errors.Wrapf(err, "failed to get status of %s", folder)
	}

	return interfaces.FolderStats{
		Total:  status.Messages,
		Recent: status.Recent,
		Unseen: status.Unseen,
	}, nil
}

func parentPath(name, delimiter string) string {
	if delimiter == "" {
		return ""
	}
	idx := strings.LastIndex(name, delimiter)
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

func hasAttribute(info *goimap.MailboxInfo, attr string) bool {
	if info == nil {
		return false
	}
	return utils.IsStringInSlice(attr, info.Attributes)
}

func findInfo(infos []*goimap.MailboxInfo, path string) *goimap.MailboxInfo {
	for _, info := range infos {
		if info.Name == path {
			return info
		}
	}
	return nil
}

func containsPath(descriptors []interfaces.FolderDescriptor, path string) bool {
	for _, d := range descriptors {
		if d.Path == path {
			return true
		}
	}
	return false
}
