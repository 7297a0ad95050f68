package api

import "net/http"

// callbackPage handles GET /auth/callback. The identity provider redirects
// here after email confirmation with the token in the URL fragment, which
// never reaches the server; this page extracts it client-side and posts it
// to /auth/verify-callback.
func (h *AuthHandlers) callbackPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(callbackHTML))
}

const callbackHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Verifying your email</title>
	<style>
		body { font-family: sans-serif; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; }
		.card { text-align: center; padding: 2rem; }
		.hidden { display: none; }
		.error { color: #b00020; }
	</style>
</head>
<body>
	<div class="card">
		<div id="pending">
			<h1>Verifying your email&hellip;</h1>
			<p>Hang tight, this only takes a moment.</p>
		</div>
		<div id="success" class="hidden">
			<h1>Email verified!</h1>
			<p id="success-message">You can close this tab and sign in.</p>
		</div>
		<div id="failure" class="hidden error">
			<h1>Verification failed</h1>
			<p id="failure-message">The link may have expired. Try requesting a new confirmation email.</p>
		</div>
	</div>
	<script>
	(function() {
		var params = new URLSearchParams(window.location.hash.replace(/^#/, ""));
		var accessToken = params.get("access_token");

		function show(id, message) {
			document.getElementById("pending").classList.add("hidden");
			var el = document.getElementById(id);
			el.classList.remove("hidden");
			if (message) {
				document.getElementById(id + "-message").textContent = message;
			}
		}

		if (!accessToken) {
			show("failure", "No verification token found in the link.");
			return;
		}

		fetch("/auth/verify-callback", {
			method: "POST",
			headers: { "Content-Type": "application/json" },
			body: JSON.stringify({
				access_token: accessToken,
				refresh_token: params.get("refresh_token") || "",
				token_type: params.get("token_type") || ""
			})
		}).then(function(res) {
			return res.json().then(function(body) { return { ok: res.ok, body: body }; });
		}).then(function(result) {
			if (result.ok && result.body.success) {
				show("success", result.body.message);
			} else {
				show("failure", result.body.error || result.body.message);
			}
		}).catch(function() {
			show("failure", "Could not reach the server. Try again later.");
		});
	})();
	</script>
</body>
</html>
`
