package input

import (
	"context"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v2"
)

// Input 输入数据
// 功能：存储仿真所需的所有输入数据
// 说明：包含栅格地图与智能体，支持从文件或数据库加载
type Input struct {
	Fields []*schema.Field
	Agents []*schema.Agent
}

// Init 下载数据
// 功能：根据配置加载地图与智能体数据
// 参数：config-配置对象
// 返回：加载完成的输入数据指针
// 算法说明：
// 1. 数据库连接：如果配置了MongoDB则建立连接
// 2. 地图数据加载：文件优先，否则从MongoDB的db.col逐条读取
// 3. 智能体数据加载：同上，未配置时为空
// 4. 数据验证：地图名不重复，智能体的家与出行终点所在地图存在（无效出行被丢弃）
// 说明：任何加载错误都会panic，仿真无法在缺少输入的情况下启动
func Init(config config.Config) *Input {
	var client *mongo.Client
	if config.Input.URI != "" {
		client = mongoutil.NewClient(config.Input.URI)
		defer client.Disconnect(context.Background())
	}

	res := &Input{}
	fields, err := load[schema.Fields](client, config.Input.Map, func(c schema.Fields) []*schema.Field { return c.Fields })
	if err != nil {
		log.Panicf("failed to load fields: %v", err)
	}
	res.Fields = fields
	names := make(map[string]struct{}, len(res.Fields))
	for _, f := range res.Fields {
		if _, ok := names[f.Name]; ok {
			log.Panicf("fields have duplicated name %s, please check data", f.Name)
		}
		names[f.Name] = struct{}{}
	}

	if config.Input.Agent != nil {
		agents, err := load[schema.Agents](client, *config.Input.Agent, func(c schema.Agents) []*schema.Agent { return c.Agents })
		if err != nil {
			log.Panicf("failed to load agents: %v", err)
		}
		res.Agents = lo.Filter(agents, func(a *schema.Agent, _ int) bool {
			if _, ok := names[a.Home.Field]; !ok {
				log.Errorf("ignore agent %s due to unknown home field %s", a.ID, a.Home.Field)
				return false
			}
			before := len(a.Trips)
			a.Trips = lo.Filter(a.Trips, func(t *schema.Trip, _ int) bool {
				_, ok := names[t.End.Field]
				return ok
			})
			if n := before - len(a.Trips); n > 0 {
				log.Warnf("agent %s: ignore %d trips to unknown fields", a.ID, n)
			}
			return true
		})
		if len(res.Agents) == 0 {
			log.Error("no valid agents to simulate")
		}
	}
	log.Infof("input loaded: %d fields, %d agents", len(res.Fields), len(res.Agents))
	return res
}

// load 加载一类数据（泛型函数）
// 功能：File非空时读取YAML文件中的集合，否则把MongoDB集合中的每个文档解码为一个元素
// 参数：client-MongoDB客户端，inputPath-输入路径配置，unwrap-从文件集合中取出元素列表
func load[C any, T any](client *mongo.Client, inputPath config.InputPath, unwrap func(C) []*T) ([]*T, error) {
	if inputPath.File != "" {
		var c C
		if err := unmarshalFromFile(&c, inputPath.File); err != nil {
			return nil, err
		}
		return unwrap(c), nil
	}
	if client == nil {
		return nil, fmt.Errorf("neither file nor mongodb uri is set for %s.%s", inputPath.DB, inputPath.Col)
	}
	log.Infof("start fetching from %s.%s", inputPath.DB, inputPath.Col)
	ctx := context.Background()
	coll := mongoutil.GetMongoColl(client, inputPath)
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	res := make([]*T, 0)
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, fmt.Errorf("bad document in %s.%s: %w", inputPath.DB, inputPath.Col, err)
		}
		res = append(res, &v)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	log.Infof("finish fetching %d documents from %s.%s", len(res), inputPath.DB, inputPath.Col)
	return res, nil
}

func unmarshalFromFile(out any, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
