package imap

import (
	"testing"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relocato/mailbridge/interfaces"
)

func TestClassifySpecialUse(t *testing.T) {
	testCases := []struct {
		path     string
		expected interfaces.SpecialUse
	}{
		{"INBOX", interfaces.SpecialUseInbox},
		{"inbox", interfaces.SpecialUseInbox},
		{"Sent", interfaces.SpecialUseSent},
		{"Sent Items", interfaces.SpecialUseSent},
		{"Gesendet", interfaces.SpecialUseSent},
		{"Gesendete Objekte", interfaces.SpecialUseSent},
		{"Drafts", interfaces.SpecialUseDrafts},
		{"Entwürfe", interfaces.SpecialUseDrafts},
		{"Trash", interfaces.SpecialUseTrash},
		{"Papierkorb", interfaces.SpecialUseTrash},
		{"Deleted Items", interfaces.SpecialUseTrash},
		{"Junk", interfaces.SpecialUseSpam},
		{"Spam", interfaces.SpecialUseSpam},
		{"Archive", interfaces.SpecialUseArchive},
		{"Archiv", interfaces.SpecialUseArchive},
		{"Projects", interfaces.SpecialUseNone},
		{"Kunden", interfaces.SpecialUseNone},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifySpecialUse(tc.path, "/"))
		})
	}
}

func TestClassifySpecialUse_OnlyLastSegmentCounts(t *testing.T) {
	// a folder under Sent is not itself the sent folder
	assert.Equal(t, interfaces.SpecialUseNone, classifySpecialUse("Sent/2024", "/"))
	assert.Equal(t, interfaces.SpecialUseTrash, classifySpecialUse("INBOX/Papierkorb", "/"))
}

func TestBuildFolderTree_DepthFirstParentsBeforeChildren(t *testing.T) {
	// Arrange
	infos := []*goimap.MailboxInfo{
		{Name: "Work/Projects", Delimiter: "/"},
		{Name: "Archive", Delimiter: "/"},
		{Name: "Work", Delimiter: "/"},
		{Name: "INBOX", Delimiter: "/"},
		{Name: "Work/Projects/2024", Delimiter: "/"},
	}

	// Act
	descriptors := buildFolderTree(infos)

	// Assert
	require.Len(t, descriptors, 5)

	paths := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{"INBOX", "Archive", "Work", "Work/Projects", "Work/Projects/2024"}, paths)

	byPath := make(map[string]interfaces.FolderDescriptor)
	for _, d := range descriptors {
		byPath[d.Path] = d
	}

	assert.Equal(t, 0, byPath["Work"].Level)
	assert.Equal(t, 1, byPath["Work/Projects"].Level)
	assert.Equal(t, 2, byPath["Work/Projects/2024"].Level)
	assert.Equal(t, "Work", byPath["Work/Projects"].ParentPath)
	assert.Equal(t, "Projects", byPath["Work/Projects"].Name)
	assert.True(t, byPath["Work"].HasChildren)
	assert.False(t, byPath["Archive"].HasChildren)
}

func TestHasAttribute(t *testing.T) {
	info := &goimap.MailboxInfo{Attributes: []string{goimap.NoSelectAttr, "\\HasChildren"}}

	assert.True(t, hasAttribute(info, goimap.NoSelectAttr))
	assert.False(t, hasAttribute(info, "\\Marked"))
	assert.False(t, hasAttribute(nil, goimap.NoSelectAttr))
}

func TestBuildFolderTree_InboxFirst(t *testing.T) {
	infos := []*goimap.MailboxInfo{
		{Name: "Aardvark", Delimiter: "/"},
		{Name: "INBOX", Delimiter: "/"},
	}

	descriptors := buildFolderTree(infos)

	require.Len(t, descriptors, 2)
	assert.Equal(t, "INBOX", descriptors[0].Path)
	assert.Equal(t, interfaces.SpecialUseInbox, descriptors[0].SpecialUse)
}
