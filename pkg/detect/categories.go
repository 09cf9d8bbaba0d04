package detect

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All patterns are registered here and compiled once at first registry use.
// Confidence values reflect how strongly a match evidences the category.
// =============================================================================

// --- JAILBREAK ---
func (r *Registry) registerJailbreakPatterns() {
	cat := CategoryJailbreak

	r.register("jb_disregard", `(?i)disregard (your|previous|prior|all) (instructions|programming|guidelines|training|directives)`, cat, 0.9, "Disregard-instructions phrasing")
	r.register("jb_persona", `(?i)(pretend|role[- ]?play|imagine|act as if)\b.{0,60}(you are|you're|you have)\b.{0,40}(unfiltered|jailbroken|no rules|no restrictions|no limits|evil)`, cat, 0.9, "Unrestricted persona injection")
	r.register("jb_from_now_on", `(?i)from now on you (must|shall|will|should)`, cat, 0.8, "Standing-order override")
	r.register("jb_dan", `(?i)\bDAN\b.{0,20}\bmode\b`, cat, 0.75, "DAN-style jailbreak")
	r.register("jb_developer_mode", `(?i)(developer|sudo|god) mode (enabled|activated|on)`, cat, 0.75, "Privileged-mode jailbreak")
	r.register("jb_uncensored", `(?i)\b(uncensored|unfiltered) (version|mode|ai|assistant)\b`, cat, 0.8, "Uncensored-variant request")
	r.register("jb_safety_off", `(?i)(bypass|disable|turn off) (all )?(safety|content) (measures|filters|checks|guidelines)`, cat, 0.9, "Safety bypass request")
	r.register("jb_restrictions_lifted", `(?i)your (restrictions|safety policies) have been (lifted|disabled|removed)`, cat, 0.9, "Skeleton-key assertion")

	// Impersonation of operators, recovered from the curated pattern corpus.
	r.register("jb_impersonation", `(?i)i('| a)m (your|the) (developer|creator|system administrator|security team)\b.{0,40}(unlock|bypass|disable|reveal|override)`, cat, 0.85, "Operator impersonation")
}

// --- PROMPT INJECTION ---
func (r *Registry) registerInjectionPatterns() {
	cat := CategoryPromptInjection

	r.register("inj_ignore_previous", `(?i)ignore (all )?(previous|prior|above|earlier) (instructions|prompts?|directives)`, cat, 0.9, "Instruction override")
	r.register("inj_forget_previous", `(?i)forget (everything|all) (you were told|your instructions)`, cat, 0.85, "Instruction reset")
	r.register("inj_new_instructions", `(?i)(your )?new (instructions|prompt|directives?) (are\b|\s*:)`, cat, 0.9, "New-instruction injection")
	r.register("inj_role_tag", `(?i)<\s*/?\s*(system|user|assistant)\s*>`, cat, 0.85, "Chat role tag injection")
	r.register("inj_system_bracket", `(?i)\[\s*system\s*\]`, cat, 0.8, "Bracketed system marker")
	r.register("inj_role_marker", `(?im)^\s*(system|assistant)\s*:\s*\S`, cat, 0.7, "Transcript role marker")
	r.register("inj_prompt_extraction", `(?i)(output|print|show|reveal|repeat|tell me)\b.{0,30}\b(your|the) (system prompt|initial instructions|hidden (instructions|guidelines))`, cat, 0.9, "System prompt extraction")
	r.register("inj_goal_hijack", `(?i)(forget|abandon|override) (what the user asked|your current (task|objective|mission))`, cat, 0.85, "Goal hijacking")
}

// --- SECRETS ---
func (r *Registry) registerSecretPatterns() {
	cat := CategorySecrets

	r.register("secret_private_key", `-----BEGIN (RSA|DSA|EC|OPENSSH|PGP)? ?PRIVATE KEY( BLOCK)?-----`, cat, 0.98, "Private key material")
	r.register("secret_aws_access_key", `\bAKIA[0-9A-Z]{16}\b`, cat, 0.95, "AWS access key ID")
	r.register("secret_aws_secret", `(?i)aws.{0,20}(secret|access).{0,3}key.{0,3}[:=]\s*['"]?[A-Za-z0-9/+=]{20,}`, cat, 0.95, "AWS secret key assignment")
	r.register("secret_gcp_service_account", `"type"\s*:\s*"service_account"`, cat, 0.9, "GCP service account JSON")
	r.register("secret_gcp_api_key", `\bAIza[0-9A-Za-z\-_]{35}\b`, cat, 0.95, "Google API key")
	r.register("secret_github_token", `\bgh[pousr]_[0-9A-Za-z]{36,}\b`, cat, 0.95, "GitHub token")
	r.register("secret_slack_token", `\bxox[baprs]-[A-Za-z0-9\-]{10,}\b`, cat, 0.95, "Slack token")
	r.register("secret_stripe_key", `\b[sr]k_live_[0-9a-zA-Z]{16,}\b`, cat, 0.95, "Stripe live key")
	r.register("secret_openai_key", `\bsk-[A-Za-z0-9_\-]{20,}\b`, cat, 0.9, "OpenAI-style API key")
	r.register("secret_jwt", `\beyJ[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}\b`, cat, 0.85, "JWT token")
	r.register("secret_bearer", `(?i)bearer\s+[A-Za-z0-9\.\-_~\+\/]{20,}`, cat, 0.85, "Bearer token")
	r.register("secret_generic_assign", `(?i)(api[_-]?key|secret[_-]?key|auth[_-]?token)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{20,}`, cat, 0.8, "Credential assignment")
	r.register("secret_password_assign", `(?i)password\s*[:=]\s*['"][^'"]{8,}['"]`, cat, 0.75, "Quoted password assignment")
	r.register("secret_db_uri", `(?i)(postgres|postgresql|mysql|mongodb(\+srv)?)://[^:/\s]+:[^@\s]+@`, cat, 0.9, "Database URI with credentials")
	r.register("secret_redis_uri", `(?i)redis://:[^@\s]+@`, cat, 0.9, "Redis URI with password")
}

// --- UNSAFE API USAGE ---
func (r *Registry) registerUnsafeAPIPatterns() {
	cat := CategoryUnsafeAPI

	// Python
	r.register("unsafe_eval", `\beval\s*\(`, cat, 0.85, "Dynamic eval")
	r.register("unsafe_exec", `\bexec\s*\(`, cat, 0.85, "Dynamic exec")
	r.register("unsafe_compile_exec", `\bcompile\s*\([^,]+,[^,]+,\s*['"]exec['"]\s*\)`, cat, 0.85, "Compile in exec mode")
	r.register("unsafe_pickle", `\bpickle\.loads?\s*\(`, cat, 0.85, "Pickle deserialization")
	r.register("unsafe_marshal", `\bmarshal\.loads?\s*\(`, cat, 0.8, "Marshal deserialization")
	r.register("unsafe_dill", `\bdill\.loads?\s*\(`, cat, 0.8, "Dill deserialization")
	r.register("unsafe_yaml_load", `\byaml\.(unsafe_load|full_load|load)\s*\(`, cat, 0.75, "Unsafe YAML load")
	r.register("unsafe_shell_true", `\bsubprocess\.\w+\s*\(.*shell\s*=\s*True`, cat, 0.9, "Subprocess with shell=True")
	r.register("unsafe_os_system", `\bos\.system\s*\(`, cat, 0.85, "os.system invocation")
	r.register("unsafe_ctypes", `\bctypes\.CDLL\s*\(`, cat, 0.75, "Raw native library load")

	// JavaScript / Node
	r.register("unsafe_function_ctor", `\bnew\s+Function\s*\(`, cat, 0.8, "Function constructor eval")
	r.register("unsafe_child_process", `\bchild_process\.(exec|execSync)\s*\(`, cat, 0.85, "Node shell execution")

	// JVM / .NET deserialization sinks
	r.register("unsafe_objectinputstream", `\bObjectInputStream\b`, cat, 0.8, "Java native deserialization")
	r.register("unsafe_binaryformatter", `(?i)\bBinaryFormatter\b`, cat, 0.8, ".NET BinaryFormatter")
	r.register("unsafe_xmldecoder", `\bXMLDecoder\b`, cat, 0.75, "Java XMLDecoder")
}

// --- OBFUSCATION ---
// Rune-level checks (invisible characters, mixed scripts) live in the
// obfuscation detector itself; these patterns cover encoded payload blobs.
func (r *Registry) registerObfuscationPatterns() {
	cat := CategoryObfuscation

	r.register("obf_base64_blob", `[A-Za-z0-9+/]{80,}={0,2}`, cat, 0.7, "Long base64 blob")
	r.register("obf_hex_escape_run", `(?:\\x[0-9a-fA-F]{2}){16,}`, cat, 0.8, "Long hex escape run")
	r.register("obf_binary_run", `(?:[01]{8}\s*){16,}`, cat, 0.8, "Binary-encoded payload")
	r.register("obf_decode_exec", `(?i)(exec|eval)\s*\(\s*(base64|b64decode|atob|bytes\.fromhex)`, cat, 0.9, "Decode-then-execute")
	r.register("obf_char_spacing", `(?i)\b(?:[a-z]\s){8,}[a-z]\b`, cat, 0.6, "Character-spaced text")
}

// --- MALICIOUS INSTRUCTIONS ---
func (r *Registry) registerMaliciousPatterns() {
	cat := CategoryMalicious

	r.register("mal_keylogger", `(?i)\b(write|create|build|generate)\b.{0,30}\bkeylogger\b`, cat, 0.9, "Keylogger request")
	r.register("mal_ransomware", `(?i)\b(ransomware|cryptolocker)\b`, cat, 0.85, "Ransomware reference")
	r.register("mal_reverse_shell", `(?i)reverse shell`, cat, 0.85, "Reverse shell request")
	r.register("mal_rev_shell_tcp", `/dev/tcp/\d+\.\d+\.\d+\.\d+`, cat, 0.9, "Reverse shell via /dev/tcp")
	r.register("mal_rm_rf_root", `\brm\s+-rf\s+/(?:\s|$|['"])`, cat, 0.9, "Destructive filesystem wipe")
	r.register("mal_curl_pipe_sh", `(?i)\b(curl|wget)\b[^|\n]{0,80}\|\s*(ba)?sh\b`, cat, 0.9, "Remote script piped to shell")
	r.register("mal_steal_creds", `(?i)\b(steal|harvest|exfiltrate)\b.{0,30}\b(passwords?|credentials?|cookies|tokens?)\b`, cat, 0.85, "Credential theft request")
	r.register("mal_bypass_auth", `(?i)\b(bypass|circumvent|defeat)\b.{0,30}\b(authentication|login|2fa|mfa)\b`, cat, 0.85, "Authentication bypass request")
	r.register("mal_hack_into", `(?i)\bhack (into|the)\b`, cat, 0.75, "Intrusion request")
	r.register("mal_ddos", `(?i)\b(ddos|denial[- ]of[- ]service) (attack|tool|script)\b`, cat, 0.85, "DoS tooling request")
	r.register("mal_sql_drop_inject", `(?i)';\s*(DROP|DELETE|TRUNCATE)\s+(TABLE|FROM|DATABASE)`, cat, 0.85, "SQL injection payload")
}

// --- ILLEGAL CONTENT ---
func (r *Registry) registerIllegalPatterns() {
	cat := CategoryIllegal

	r.register("illegal_explosives", `(?i)how to (make|build|construct) (a |an )?(bomb|explosive|pipe bomb|ied)\b`, cat, 0.9, "Explosives synthesis request")
	r.register("illegal_drugs", `(?i)\b(synthesize|cook|manufacture)\b.{0,20}\b(meth(amphetamine)?|fentanyl|mdma|heroin)\b`, cat, 0.9, "Drug synthesis request")
	r.register("illegal_stolen_cards", `(?i)\b(buy|sell|use)\b.{0,20}\bstolen credit cards?\b`, cat, 0.85, "Stolen card trafficking")
	r.register("illegal_launder", `(?i)\b(launder|laundering)\b.{0,20}\bmoney\b`, cat, 0.8, "Money laundering request")
	r.register("illegal_forge_docs", `(?i)\b(forge|counterfeit|fake)\b.{0,20}\b(passport|id card|driver'?s license|currency)\b`, cat, 0.85, "Document forgery request")
	r.register("illegal_untraceable_weapon", `(?i)\b(untraceable|ghost) (gun|firearm|weapon)\b`, cat, 0.85, "Untraceable weapon request")
}

// --- LICENSE RISK ---
func (r *Registry) registerLicensePatterns() {
	cat := CategoryLicenseRisk

	r.register("license_gpl_header", `(?i)GNU (Affero )?General Public License`, cat, 0.8, "GPL license text in output")
	r.register("license_spdx_copyleft", `(?i)SPDX-License-Identifier:\s*(A?GPL|LGPL)`, cat, 0.85, "Copyleft SPDX identifier")
	r.register("license_proprietary", `(?i)(proprietary|confidential).{0,40}all rights reserved`, cat, 0.75, "Proprietary notice in output")
	r.register("license_do_not_distribute", `(?i)do not (distribute|redistribute|copy)\b.{0,30}(without|unless)`, cat, 0.7, "Distribution restriction notice")
}
