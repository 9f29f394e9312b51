package clientcli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/clientcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatter(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		formatter := clientcli.NewFormatter(true, false)
		_, ok := formatter.(*clientcli.JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter quiet", func(t *testing.T) {
		formatter := clientcli.NewFormatter(false, true)
		hf, ok := formatter.(*clientcli.HumanFormatter)
		require.True(t, ok)
		assert.True(t, hf.Quiet)
	})
}

func TestHumanFormatter_FormatItem(t *testing.T) {
	item := itemgate.Item{ID: "abc", Fields: itemgate.Fields{"name": "widget", "qty": 3, "tags": []any{"a"}}}

	t.Run("fields in key order", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatItem(&buf, item))
		assert.Equal(t, "ID: abc\n  name: \"widget\"\n  qty: 3\n  tags: [\"a\"]\n", buf.String())
	})

	t.Run("quiet prints id", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatItem(&buf, item))
		assert.Equal(t, "abc\n", buf.String())
	})
}

func TestHumanFormatter_FormatItems(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatItems(&buf, nil))
		assert.Equal(t, "No items found\n", buf.String())
	})

	t.Run("table", func(t *testing.T) {
		items := []itemgate.Item{
			{ID: "one", Fields: itemgate.Fields{"n": 1}},
			{ID: "two", Fields: itemgate.Fields{"long": string(bytes.Repeat([]byte("x"), 100))}},
		}

		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatItems(&buf, items))

		output := buf.String()
		assert.Contains(t, output, "ID")
		assert.Contains(t, output, "FIELDS")
		assert.Contains(t, output, `{"n":1}`)
		assert.Contains(t, output, "...")
		assert.Contains(t, output, "2 item(s)")
	})
}

func TestHumanFormatter_FormatUpload(t *testing.T) {
	results := []clientcli.UploadResult{
		{LocalPath: "a.png", ImageURL: "http://cdn/a.png", Size: 2048},
		{LocalPath: "b.png", Err: errors.New("boom")},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatUpload(&buf, results))
	output := buf.String()
	assert.Contains(t, output, "Uploaded: a.png (2.0 KB)")
	assert.Contains(t, output, "URL: http://cdn/a.png")
	assert.Contains(t, output, "Error: b.png - boom")

	buf.Reset()
	require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatUpload(&buf, results[:1]))
	assert.Equal(t, "http://cdn/a.png\n", buf.String())
}

func TestHumanFormatter_FormatDelete(t *testing.T) {
	results := []clientcli.DeleteResult{
		{ID: "a", Deleted: true},
		{ID: "b", Err: errors.New("not found")},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatDelete(&buf, results))
	assert.Equal(t, "Error: b - not found\n", buf.String())
}

func TestHumanFormatter_FormatIdentityAndLogin(t *testing.T) {
	var buf bytes.Buffer
	f := &clientcli.HumanFormatter{}

	require.NoError(t, f.FormatIdentity(&buf, itemgate.Identity{UID: "u1", Email: "a@example.com"}))
	assert.Contains(t, buf.String(), "Signed up: a@example.com")
	assert.Contains(t, buf.String(), "UID: u1")

	buf.Reset()
	require.NoError(t, f.FormatLogin(&buf, clientcli.LoginResult{Profile: "default", Email: "a@example.com", Token: "secret-token"}))
	assert.Contains(t, buf.String(), "Logged in as a@example.com")
	assert.NotContains(t, buf.String(), "secret-token")
}

func TestHumanFormatter_Profiles(t *testing.T) {
	profiles := []clientcli.Profile{
		{Name: "local", Endpoint: "http://localhost:3000", Email: "a@example.com", Token: "eyJhbGciOiJIUzI1NiJ9.payload.sig"},
		{Name: "prod", Endpoint: "https://api.example.com"},
	}
	f := &clientcli.HumanFormatter{}

	t.Run("list masks tokens", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatProfileList(&buf, profiles, "local", false))
		output := buf.String()
		assert.Contains(t, output, "* local")
		assert.Contains(t, output, "eyJh....sig")
		assert.Contains(t, output, "(not set)")
		assert.NotContains(t, output, "payload")
	})

	t.Run("show with secrets", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatProfileShow(&buf, profiles[0], true, true))
		output := buf.String()
		assert.Contains(t, output, "local (default)")
		assert.Contains(t, output, "Email:    a@example.com")
		assert.Contains(t, output, profiles[0].Token)
	})
}

func TestJSONFormatter(t *testing.T) {
	f := &clientcli.JSONFormatter{}

	t.Run("item uses wire shape", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatItem(&buf, itemgate.Item{ID: "abc", Fields: itemgate.Fields{"name": "w"}}))
		assert.JSONEq(t, `{"id":"abc","name":"w"}`, buf.String())
	})

	t.Run("nil items encode as empty array", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatItems(&buf, nil))
		assert.JSONEq(t, `[]`, buf.String())
	})

	t.Run("delete results", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatDelete(&buf, []clientcli.DeleteResult{
			{ID: "a", Deleted: true},
			{ID: "b", Err: errors.New("gone")},
		}))
		assert.JSONEq(t, `{"results":[{"id":"a","deleted":true},{"id":"b","deleted":false,"error":"gone"}]}`, buf.String())
	})

	t.Run("upload results", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatUpload(&buf, []clientcli.UploadResult{
			{LocalPath: "a.png", ImageURL: "http://cdn/a.png", ContentType: "image/png", Size: 3},
			{LocalPath: "b.png", Err: errors.New("boom")},
		}))
		assert.JSONEq(t, `[
			{"local_path":"a.png","image_url":"http://cdn/a.png","content_type":"image/png","size_bytes":3},
			{"local_path":"b.png","error":"boom"}
		]`, buf.String())
	})

	t.Run("error", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatError(&buf, errors.New("nope")))
		assert.JSONEq(t, `{"error":"nope"}`, buf.String())
	})

	t.Run("profile list", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatProfileList(&buf, []clientcli.Profile{
			{Name: "local", Endpoint: "http://localhost:3000", Token: "short"},
		}, "local", false))

		var out struct {
			Profiles []map[string]any `json:"profiles"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		require.Len(t, out.Profiles, 1)
		assert.Equal(t, "********", out.Profiles[0]["token"])
		assert.Equal(t, true, out.Profiles[0]["default"])
	})

	t.Run("login includes token", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatLogin(&buf, clientcli.LoginResult{Profile: "p", Endpoint: "http://e", Email: "a@b.c", Token: "tok"}))
		assert.JSONEq(t, `{"profile":"p","endpoint":"http://e","email":"a@b.c","token":"tok"}`, buf.String())
	})
}
