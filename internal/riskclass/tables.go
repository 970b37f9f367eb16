package riskclass

import "regexp"

type capability struct {
	name string
	desc string
}

// networkCommands can reach remote hosts.
var networkCommands = map[string]capability{
	"telnet":     {"Network connection tool", "Can connect to remote hosts, unencrypted"},
	"nc":         {"Netcat", "Powerful network tool, can create reverse shells"},
	"ncat":       {"Ncat", "Enhanced netcat, can create reverse shells"},
	"netcat":     {"Netcat", "Powerful network tool, can create reverse shells"},
	"curl":       {"HTTP client", "Downloads content from URLs"},
	"wget":       {"HTTP client", "Downloads files from URLs"},
	"ssh":        {"Secure shell", "Remote access to systems"},
	"scp":        {"Secure copy", "Transfers files over SSH"},
	"rsync":      {"Remote sync", "Syncs files, can be remote"},
	"ftp":        {"FTP client", "Unencrypted file transfer"},
	"sftp":       {"SFTP client", "Encrypted file transfer"},
	"nmap":       {"Network scanner", "Scans networks and ports"},
	"ping":       {"Network ping", "Tests network connectivity"},
	"traceroute": {"Network trace", "Shows network path"},
	"dig":        {"DNS lookup", "Queries DNS records"},
	"nslookup":   {"DNS lookup", "Queries DNS records"},
	"host":       {"DNS lookup", "Queries DNS records"},
}

// systemCommands modify system state.
var systemCommands = map[string]capability{
	"rm":        {"Remove files", "Deletes files/directories"},
	"dd":        {"Disk dump", "Low-level disk operations"},
	"mkfs":      {"Make filesystem", "Formats disks"},
	"fdisk":     {"Disk partition", "Modifies partitions"},
	"chmod":     {"Change permissions", "Modifies file permissions"},
	"chown":     {"Change owner", "Modifies file ownership"},
	"sudo":      {"Superuser do", "Runs with elevated privileges"},
	"su":        {"Switch user", "Changes user context"},
	"passwd":    {"Change password", "Modifies user passwords"},
	"useradd":   {"Add user", "Creates new users"},
	"userdel":   {"Delete user", "Removes users"},
	"crontab":   {"Cron table", "Schedules recurring tasks"},
	"systemctl": {"System control", "Manages system services"},
	"service":   {"Service manager", "Controls services"},
	"kill":      {"Kill process", "Terminates processes"},
	"pkill":     {"Kill by name", "Terminates processes by name"},
}

// execCommands run arbitrary code.
var execCommands = map[string]capability{
	"bash":    {"Bash shell", "Command interpreter"},
	"sh":      {"Shell", "Command interpreter"},
	"zsh":     {"Zsh shell", "Command interpreter"},
	"python":  {"Python", "Script interpreter"},
	"python3": {"Python 3", "Script interpreter"},
	"perl":    {"Perl", "Script interpreter"},
	"ruby":    {"Ruby", "Script interpreter"},
	"node":    {"Node.js", "JavaScript runtime"},
	"eval":    {"Eval", "Evaluates code"},
	"exec":    {"Exec", "Executes commands"},
	"source":  {"Source", "Executes script in current shell"},
}

// safeCommands are read-only or otherwise benign; they short-circuit
// classification to minimal.
var safeCommands = map[string]string{
	"whoami":   "Shows current username",
	"id":       "Shows user/group IDs",
	"pwd":      "Shows current directory",
	"ls":       "Lists directory contents",
	"cat":      "Displays file contents",
	"head":     "Shows first lines of file",
	"tail":     "Shows last lines of file",
	"less":     "File pager",
	"more":     "File pager",
	"echo":     "Prints text",
	"date":     "Shows date/time",
	"cal":      "Shows calendar",
	"uptime":   "Shows system uptime",
	"uname":    "Shows system info",
	"hostname": "Shows hostname",
	"env":      "Shows environment variables",
	"printenv": "Shows environment variables",
	"which":    "Shows command path",
	"whereis":  "Locates command",
	"type":     "Shows command type",
	"file":     "Shows file type",
	"wc":       "Word/line count",
	"sort":     "Sorts text",
	"uniq":     "Filters duplicates",
	"grep":     "Searches text patterns",
	"find":     "Finds files",
	"locate":   "Locates files",
	"df":       "Shows disk usage",
	"du":       "Shows directory size",
	"free":     "Shows memory usage",
	"top":      "Shows processes",
	"htop":     "Shows processes (interactive)",
	"ps":       "Lists processes",
	"man":      "Shows manual pages",
	"help":     "Shows help",
	"history":  "Shows command history",
	"clear":    "Clears terminal",
	"true":     "Returns success",
	"false":    "Returns failure",
	"test":     "Evaluates conditions",
	"cd":       "Changes directory",
	"mkdir":    "Creates directory",
	"touch":    "Creates empty file",
	"cp":       "Copies files",
	"mv":       "Moves files",
}

type dangerousPattern struct {
	re     *regexp.Regexp
	reason string
}

// dangerousPatterns are structural shapes that raise risk regardless
// of the base command.
var dangerousPatterns = []dangerousPattern{
	{regexp.MustCompile(`\|.*sh\b`), "Pipe to shell - potential code execution"},
	{regexp.MustCompile(`>\s*/dev/`), "Write to device - potential system damage"},
	{regexp.MustCompile(`>\s*/etc/`), "Write to /etc - system config modification"},
	{regexp.MustCompile(`rm\s+-rf\s+/`), "Recursive force delete from root"},
	{regexp.MustCompile(`:\(\)\{.*\}`), "Fork bomb pattern"},
	{regexp.MustCompile(`base64\s+-d`), "Base64 decode - potential obfuscation"},
	{regexp.MustCompile(`eval\s*\(`), "Eval with expression - code execution"},
	{regexp.MustCompile(`/dev/tcp/`), "Bash TCP redirection"},
	{regexp.MustCompile(`/dev/udp/`), "Bash UDP redirection"},
}
