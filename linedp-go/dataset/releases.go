package dataset

// Projects lists the studied projects in a stable order.
var Projects = []string{
	"activemq",
	"camel",
	"derby",
	"groovy",
	"hbase",
	"hive",
	"jruby",
	"lucene",
	"wicket",
}

// TrainReleases maps each project to the release used for training.
var TrainReleases = map[string]string{
	"activemq": "activemq-5.0.0",
	"camel":    "camel-1.4.0",
	"derby":    "derby-10.2.1.6",
	"groovy":   "groovy-1_5_7",
	"hbase":    "hbase-0.94.0",
	"hive":     "hive-0.9.0",
	"jruby":    "jruby-1.1",
	"lucene":   "lucene-2.3.0",
	"wicket":   "wicket-1.3.0-incubating-beta-1",
}

// EvalReleases maps each project to its later releases, ordered by version.
// The first entry of each list is held out for validation during training,
// the rest are reserved for offline evaluation.
var EvalReleases = map[string][]string{
	"activemq": {"activemq-5.1.0", "activemq-5.2.0", "activemq-5.3.0", "activemq-5.8.0"},
	"camel":    {"camel-2.9.0", "camel-2.10.0", "camel-2.11.0"},
	"derby":    {"derby-10.3.1.4", "derby-10.5.1.1"},
	"groovy":   {"groovy-1_6_BETA_1", "groovy-1_6_BETA_2"},
	"hbase":    {"hbase-0.95.0", "hbase-0.95.2"},
	"hive":     {"hive-0.10.0", "hive-0.12.0"},
	"jruby":    {"jruby-1.4.0", "jruby-1.5.0", "jruby-1.7.0.preview1"},
	"lucene":   {"lucene-2.9.0", "lucene-3.0.0", "lucene-3.1"},
	"wicket":   {"wicket-1.3.0-beta2", "wicket-1.5.3"},
}

// ValidRelease returns the release held out for validation when training proj.
func ValidRelease(proj string) string {
	return EvalReleases[proj][0]
}
