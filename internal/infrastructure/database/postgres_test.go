package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Run("URLからホスト名を抽出", func(t *testing.T) {
		dsn, err := PostgresDSN("https://abc.supabase.co/", "secret")
		require.NoError(t, err)
		assert.Equal(t, "host=db.abc.supabase.co port=6543 user=postgres password=secret dbname=postgres sslmode=require", dsn)
	})

	t.Run("必須項目の欠落", func(t *testing.T) {
		_, err := PostgresDSN("", "secret")
		assert.Error(t, err)
		_, err = PostgresDSN("https://abc.supabase.co", "")
		assert.Error(t, err)
	})
}

func TestNewSupabaseClientValidation(t *testing.T) {
	_, err := NewSupabaseClient("", "key")
	assert.Error(t, err)
	_, err = NewSupabaseClient("https://abc.supabase.co", "")
	assert.Error(t, err)
}

func TestSupabaseHealthCheck(t *testing.T) {
	t.Run("spotsテーブルを1件読めれば正常", func(t *testing.T) {
		var gotPath, gotLimit string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotLimit = r.URL.Query().Get("limit")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"s1"}]`))
		}))
		defer srv.Close()

		client, err := NewSupabaseClient(srv.URL, "anon")
		require.NoError(t, err)
		require.NoError(t, client.HealthCheck(context.Background()))
		assert.Equal(t, "/rest/v1/spots", gotPath)
		assert.Equal(t, "1", gotLimit)
	})

	t.Run("エラー応答なら異常", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"code":"PGRST000","message":"database unavailable","details":"","hint":""}`))
		}))
		defer srv.Close()

		client, err := NewSupabaseClient(srv.URL, "anon")
		require.NoError(t, err)
		assert.Error(t, client.HealthCheck(context.Background()))
	})

	t.Run("キャンセル済みのコンテキスト", func(t *testing.T) {
		client, err := NewSupabaseClient("https://abc.supabase.co", "anon")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, client.HealthCheck(ctx), context.Canceled)
	})
}
